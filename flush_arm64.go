//go:build arm64

// flush_arm64.go - ARM64 的指令缓存同步
//
// ARM64 的 I-Cache 与 D-Cache 不保持一致，新写入的代码必须先
// 按虚拟地址清理 D-Cache 到统一点（DC CVAU），再失效对应的
// I-Cache 行（IC IVAU），否则会执行到陈旧或撕裂的指令。
// D-Cache 为物理索引（PIPT），对双映射的任一视图地址做清理
// 都作用于相同的物理缓存行。

package jitmem

// Flush 使 [addr, addr+size) 范围内新写入的代码对取指路径可见
// 不加锁、同步完成，写入后在同一线程立即调用是安全的。
func Flush(addr uintptr, size int) {
	if addr == 0 || size <= 0 {
		return
	}
	flushICacheRange(addr, addr+uintptr(size))
}

// flushICacheRange 清理并失效 [begin, end) 的缓存行
// 汇编实现见 flush_arm64.s。
func flushICacheRange(begin, end uintptr)
