//go:build amd64

// bridge_amd64.go - AMD64 平台的本机代码桥接
//
// 提供从 Go 调用 RX 视图中机器码的入口，用于自检和测试。
// 整型参数按 System V 顺序放入 DI/SI/DX/CX，返回值取 AX。

package jitmem

// callNative0 调用无参数的本机函数
func callNative0(funcPtr uintptr) int64

// callNative1 调用单参数的本机函数
func callNative1(funcPtr uintptr, arg0 int64) int64

// callNative2 调用双参数的本机函数
func callNative2(funcPtr uintptr, arg0, arg1 int64) int64

// callNative3 调用三参数的本机函数
func callNative3(funcPtr uintptr, arg0, arg1, arg2 int64) int64

// callNative4 调用四参数的本机函数
func callNative4(funcPtr uintptr, arg0, arg1, arg2, arg3 int64) int64

// CallNative 调用 RX 视图中的机器码
// funcPtr 必须指向已写入并 Flush 过的代码。最多支持 4 个整型参数，
// 超出时返回 (0, false)。
func CallNative(funcPtr uintptr, args []int64) (int64, bool) {
	if funcPtr == 0 {
		return 0, false
	}

	switch len(args) {
	case 0:
		return callNative0(funcPtr), true
	case 1:
		return callNative1(funcPtr, args[0]), true
	case 2:
		return callNative2(funcPtr, args[0], args[1]), true
	case 3:
		return callNative3(funcPtr, args[0], args[1], args[2]), true
	case 4:
		return callNative4(funcPtr, args[0], args[1], args[2], args[3]), true
	default:
		return 0, false
	}
}

// RetCode 返回本平台最小的"直接返回"指令序列
// 用于冒烟自检：写入后执行应当直接返回而不发生故障。
func RetCode() []byte {
	return []byte{0xC3} // RET
}
