//go:build amd64

// flush_amd64.go - x86-64 的指令缓存同步
//
// x86 的取指路径对同一物理页的写入保持一致性，跨页别名写入后
// 下一次控制转移（CALL/JMP/RET）即可看到新指令，无需显式失效。

package jitmem

// Flush 使 [addr, addr+size) 范围内新写入的代码对取指路径可见
// 在 x86-64 上是空操作。保持调用是跨平台正确性的要求：
// 写入代码之后、执行之前必须调用。
func Flush(addr uintptr, size int) {
}
