//go:build windows

// dualmap_windows.go - Windows 平台的双映射实现
//
// 用页文件背书的匿名 section 作为后备存储，对同一个 section
// 做两次 MapViewOfFile：一次 FILE_MAP_WRITE，一次
// FILE_MAP_READ|FILE_MAP_EXECUTE。section 本身以
// PAGE_EXECUTE_READWRITE 创建，单个视图的权限仍各自受限。

package jitmem

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// section 分配常量
const (
	secCommit = 0x8000000 // SEC_COMMIT
)

// mapping 一条双映射分配记录
type mapping struct {
	rwBase  uintptr // RW 视图基址
	rxBase  uintptr // RX 视图基址
	size    int     // 页对齐后的长度，两个视图相同
	section windows.Handle
}

// newMapping 建立一块 size 字节的双映射
// 失败时拆除已建立的资源，绝不返回半建立的映射。
// name 仅在 Linux memfd 上有意义，这里的 section 匿名创建。
func newMapping(size int, name string) (*mapping, error) {
	maxHi := uint32(uint64(size) >> 32)
	maxLo := uint32(uint64(size) & 0xffffffff)
	section, err := windows.CreateFileMapping(
		windows.InvalidHandle, nil,
		windows.PAGE_EXECUTE_READWRITE|secCommit,
		maxHi, maxLo, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: CreateFileMapping: %v", ErrBackingStore, err)
	}

	// RW 视图
	rw, err := windows.MapViewOfFile(section, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(section)
		return nil, fmt.Errorf("%w: map rw view: %v", ErrMapping, err)
	}

	// RX 视图
	rx, err := windows.MapViewOfFile(section, windows.FILE_MAP_READ|windows.FILE_MAP_EXECUTE, 0, 0, uintptr(size))
	if err != nil {
		windows.UnmapViewOfFile(rw)
		windows.CloseHandle(section)
		return nil, fmt.Errorf("%w: map rx view: %v", ErrMapping, err)
	}

	return &mapping{
		rwBase:  rw,
		rxBase:  rx,
		size:    size,
		section: section,
	}, nil
}

// release 解除两个视图并关闭 section 句柄
func (mp *mapping) release() error {
	var firstErr error
	if err := windows.UnmapViewOfFile(mp.rwBase); err != nil {
		firstErr = fmt.Errorf("unmap rw view: %w", err)
	}
	if err := windows.UnmapViewOfFile(mp.rxBase); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("unmap rx view: %w", err)
	}
	if err := windows.CloseHandle(mp.section); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close section handle: %w", err)
	}
	return firstErr
}
