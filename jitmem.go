// Package jitmem 提供符合 W^X 策略的 JIT 可执行内存管理
//
// 现代系统（Android 10+、OpenBSD、带 MAP_JIT 限制的 macOS 等）禁止同一
// 映射同时具有写和执行权限。本包通过双映射绕开该限制：为同一块匿名
// 共享后备存储建立两个独立的虚拟内存视图，一个只读写（供代码生成器
// 写入机器码），一个只读执行（供 CPU 取指执行）。两个视图指向相同的
// 物理页，通过 RW 视图写入的字节立即出现在 RX 视图的相同偏移处。
//
// 使用方式：
//
//	m := jitmem.New(nil)
//	rw, rx, err := m.Allocate(size)
//	// 通过 rw 写入机器码
//	jitmem.Flush(rx, size)
//	// 从 rx 执行
//	m.Free(rw, rx, size)
//
// 调用方只持有裸地址，后备存储和两个视图始终归 Manager 所有，
// 绝不能由调用方自行 munmap 或关闭。
package jitmem

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	log "github.com/sirupsen/logrus"
)

// ============================================================================
// 管理器
// ============================================================================

// Manager 双映射可执行内存管理器
// 所有注册表操作由单个互斥锁串行化；多个 Manager 实例可以独立共存。
type Manager struct {
	mu       sync.Mutex
	cfg      *Config
	byRW     map[uintptr]*mapping // RW 基址 -> 分配记录
	byRX     map[uintptr]*mapping // RX 基址 -> 同一条记录
	pageSize int                  // 首次初始化时探测，之后不再变化
	inited   bool

	// 累计统计
	totalAllocs  int64
	totalFrees   int64
	unknownFrees int64
	forcedFrees  int64
}

// Stats 管理器统计信息
type Stats struct {
	OpenRegions  int   `json:"open_regions"`  // 当前打开的区域数
	OpenBytes    int64 `json:"open_bytes"`    // 当前映射的总字节数
	TotalAllocs  int64 `json:"total_allocs"`  // 累计分配次数
	TotalFrees   int64 `json:"total_frees"`   // 累计显式释放次数
	UnknownFrees int64 `json:"unknown_frees"` // 对未知地址的释放次数
	ForcedFrees  int64 `json:"forced_frees"`  // Shutdown 兜底释放的区域数
}

// New 创建内存管理器
// cfg 为 nil 时使用默认配置。创建即处于未初始化状态，
// Init 或首次 Allocate 会完成初始化。
func New(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyLogLevel()
	return &Manager{
		cfg:  cfg,
		byRW: make(map[uintptr]*mapping),
		byRX: make(map[uintptr]*mapping),
	}
}

// ============================================================================
// 生命周期
// ============================================================================

// Init 初始化管理器，探测并缓存页大小
// 幂等：已初始化时调用是空操作。
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureInitLocked()
	return nil
}

// Shutdown 关闭管理器并强制释放所有仍然打开的区域
// 从任意状态调用都会回到未初始化状态；之后重新 Init 可恢复使用。
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	leaked := len(m.byRW)
	for _, mp := range m.byRW {
		if err := mp.release(); err != nil {
			log.WithFields(log.Fields{
				"rw":    fmt.Sprintf("%#x", mp.rwBase),
				"error": err,
			}).Error("failed to release dual mapping during shutdown")
		}
		m.forcedFrees++
	}
	m.byRW = make(map[uintptr]*mapping)
	m.byRX = make(map[uintptr]*mapping)
	m.inited = false

	if leaked > 0 {
		log.WithFields(log.Fields{"regions": leaked}).Warn("shutdown released regions the caller never freed")
	} else {
		log.Debug("jitmem shutdown complete")
	}
}

// ensureInitLocked 完成初始化，调用方必须持有 m.mu
// 页大小只探测一次，Shutdown 之后仍然沿用缓存值。
func (m *Manager) ensureInitLocked() {
	if m.inited {
		return
	}
	if m.pageSize == 0 {
		m.pageSize = os.Getpagesize()
		if m.pageSize == 0 {
			m.pageSize = 4096 // 兜底
		}
	}
	m.inited = true
	log.WithFields(log.Fields{"page_size": m.pageSize}).Debug("jitmem initialized")
}

// PageSize 返回系统页大小
func (m *Manager) PageSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureInitLocked()
	return m.pageSize
}

// ============================================================================
// 分配与释放
// ============================================================================

// Allocate 分配一块双映射的 JIT 内存
// size 向上取整到页大小。返回 RW 视图和 RX 视图的基址，两个视图
// 引用相同的物理页。失败时不会留下任何半建立的映射。
func (m *Manager) Allocate(size int) (rw, rx uintptr, err error) {
	if size <= 0 {
		return 0, 0, fmt.Errorf("%w: size %d", ErrInvalidArgument, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureInitLocked()

	if m.cfg.MaxRegions > 0 && len(m.byRW) >= m.cfg.MaxRegions {
		return 0, 0, fmt.Errorf("%w: %d regions open", ErrRegionLimit, len(m.byRW))
	}

	allocSize := (size + m.pageSize - 1) &^ (m.pageSize - 1)

	mp, err := newMapping(allocSize, m.cfg.MemfdName)
	if err != nil {
		return 0, 0, err
	}

	m.byRW[mp.rwBase] = mp
	m.byRX[mp.rxBase] = mp
	m.totalAllocs++

	log.WithFields(log.Fields{
		"size": allocSize,
		"rw":   fmt.Sprintf("%#x", mp.rwBase),
		"rx":   fmt.Sprintf("%#x", mp.rxBase),
	}).Debug("allocated dual mapping")

	return mp.rwBase, mp.rxBase, nil
}

// Free 释放一块双映射内存
// 按 rw 基址查找注册表。未知地址（包括重复释放）是空操作，只记录
// 日志，不会崩溃。rx 与记录不符时以注册表为准继续释放，并记录警告。
// size 仅为接口对称性保留，实际以记录的大小为准。
func (m *Manager) Free(rw, rx uintptr, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, ok := m.byRW[rw]
	if !ok {
		m.unknownFrees++
		log.WithFields(log.Fields{"rw": fmt.Sprintf("%#x", rw)}).Warn("free of unknown allocation")
		return
	}

	if mp.rxBase != rx {
		log.WithFields(log.Fields{
			"recorded": fmt.Sprintf("%#x", mp.rxBase),
			"supplied": fmt.Sprintf("%#x", rx),
		}).Warn("free with mismatched rx pointer, proceeding with recorded mapping")
	}

	if err := mp.release(); err != nil {
		log.WithFields(log.Fields{
			"rw":    fmt.Sprintf("%#x", mp.rwBase),
			"error": err,
		}).Error("failed to release dual mapping")
	}

	delete(m.byRW, mp.rwBase)
	delete(m.byRX, mp.rxBase)
	m.totalFrees++

	log.WithFields(log.Fields{
		"rw": fmt.Sprintf("%#x", mp.rwBase),
		"rx": fmt.Sprintf("%#x", mp.rxBase),
	}).Debug("freed dual mapping")
}

// ============================================================================
// 地址转换
// ============================================================================

// RWToRX 把 RW 视图中的地址转换为 RX 视图中的对应地址
// 支持基址和内部地址（基址 + 偏移）。地址不属于任何已打开的区域时
// 返回 (0, false)；这是合法探测，不视为错误。
func (m *Manager) RWToRX(addr uintptr) (uintptr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mp, ok := m.byRW[addr]; ok {
		return mp.rxBase, true
	}

	// 内部地址：线性扫描包含该地址的区域
	// 同时打开的 JIT 区域数预期很小，上界为 O(区域数)。
	for _, mp := range m.byRW {
		if addr >= mp.rwBase && addr < mp.rwBase+uintptr(mp.size) {
			return mp.rxBase + (addr - mp.rwBase), true
		}
	}
	return 0, false
}

// RXToRW 把 RX 视图中的地址转换为 RW 视图中的对应地址
// 代码生成器修补已发射的代码时，手里只有执行地址，而改写必须通过
// 可写别名进行——这里是唯一知道两者对应关系的地方。
func (m *Manager) RXToRW(addr uintptr) (uintptr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mp, ok := m.byRX[addr]; ok {
		return mp.rwBase, true
	}

	for _, mp := range m.byRX {
		if addr >= mp.rxBase && addr < mp.rxBase+uintptr(mp.size) {
			return mp.rwBase + (addr - mp.rxBase), true
		}
	}
	return 0, false
}

// ============================================================================
// 统计
// ============================================================================

// Stats 返回统计信息
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var openBytes int64
	for _, mp := range m.byRW {
		openBytes += int64(mp.size)
	}
	return Stats{
		OpenRegions:  len(m.byRW),
		OpenBytes:    openBytes,
		TotalAllocs:  m.totalAllocs,
		TotalFrees:   m.totalFrees,
		UnknownFrees: m.unknownFrees,
		ForcedFrees:  m.forcedFrees,
	}
}

// ============================================================================
// 裸地址访问辅助
// ============================================================================

// Bytes 把裸地址和长度转换为字节切片
// 仅对 Allocate 返回的区域内的地址有效；切片不持有任何所有权。
func Bytes(addr uintptr, size int) []byte {
	if addr == 0 || size <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// CopyCode 把机器码复制到 dst（通常为 RW 视图中的地址）
// 写入之后、执行之前必须对 RX 侧对应范围调用 Flush。
func CopyCode(dst uintptr, code []byte) {
	copy(Bytes(dst, len(code)), code)
}
