//go:build !amd64 && !arm64

// flush_other.go - 其他架构的指令缓存同步
//
// 没有本机桥接的架构上不会执行 JIT 代码，空实现即可。

package jitmem

// Flush 在不支持的架构上是空操作
func Flush(addr uintptr, size int) {
}
