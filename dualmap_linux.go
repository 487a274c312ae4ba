//go:build linux

// dualmap_linux.go - Linux/Android 平台的双映射实现
//
// 用 memfd_create 创建匿名共享后备存储，再对同一个 fd 做两次
// MAP_SHARED 映射：RW 视图给代码生成器写入，RX 视图给 CPU 执行。
// Android 10+ 强制 W^X，这是该平台上 JIT 唯一可行的做法。

package jitmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapping 一条双映射分配记录
// 字段在创建后不再变化；通过 RW 视图写入的内容随时可变。
type mapping struct {
	rwBase uintptr // RW 视图基址
	rxBase uintptr // RX 视图基址
	size   int     // 页对齐后的长度，两个视图相同
	fd     int     // 后备存储的所有权句柄

	rwMem []byte // unix.Mmap 返回的切片，munmap 时需要
	rxMem []byte
}

// newMapping 建立一块 size 字节的双映射
// size 必须已经页对齐。任何一步失败都会拆除之前建立的资源，
// 绝不返回半建立的映射。
func newMapping(size int, name string) (*mapping, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("%w: memfd_create: %v", ErrBackingStore, err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: ftruncate to %d: %v", ErrResize, size, err)
	}

	// RW 视图：代码生成器通过它写入机器码
	rwMem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap rw view: %v", ErrMapping, err)
	}

	// RX 视图：指向相同物理页，只读执行
	rxMem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_EXEC, unix.MAP_SHARED)
	if err != nil {
		unix.Munmap(rwMem)
		unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap rx view: %v", ErrMapping, err)
	}

	return &mapping{
		rwBase: uintptr(unsafe.Pointer(&rwMem[0])),
		rxBase: uintptr(unsafe.Pointer(&rxMem[0])),
		size:   size,
		fd:     fd,
		rwMem:  rwMem,
		rxMem:  rxMem,
	}, nil
}

// release 解除两个视图并关闭后备存储
// 尽量释放全部资源，返回遇到的第一个错误。
func (mp *mapping) release() error {
	var firstErr error
	if err := unix.Munmap(mp.rwMem); err != nil {
		firstErr = fmt.Errorf("munmap rw view: %w", err)
	}
	if err := unix.Munmap(mp.rxMem); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("munmap rx view: %w", err)
	}
	if err := unix.Close(mp.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close backing fd: %w", err)
	}
	return firstErr
}
