//go:build !linux && !windows

// dualmap_other.go - 不支持双映射的平台
//
// darwin 需要 mach_vm_remap 配合 MAP_JIT，各 BSD 需要 SHM_ANON
// 等各自的机制，当前尚未实现。Allocate 在这些平台上直接失败。

package jitmem

// mapping 占位记录，不会被创建
type mapping struct {
	rwBase uintptr
	rxBase uintptr
	size   int
}

func newMapping(size int, name string) (*mapping, error) {
	return nil, ErrUnsupported
}

func (mp *mapping) release() error {
	return nil
}
