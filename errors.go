// errors.go - jitmem 错误定义
//
// 所有分配路径上的失败都会包装这里的哨兵错误，
// 调用方可以用 errors.Is 判断失败类别。

package jitmem

import "errors"

var (
	// ErrInvalidArgument 参数非法（size <= 0）
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBackingStore 无法创建匿名共享后备存储
	ErrBackingStore = errors.New("backing store unavailable")

	// ErrResize 后备存储无法调整到请求的大小
	ErrResize = errors.New("backing store resize failed")

	// ErrMapping 建立虚拟内存视图失败
	ErrMapping = errors.New("mapping failed")

	// ErrUnsupported 当前平台不支持双映射
	ErrUnsupported = errors.New("dual mapping not supported on this platform")

	// ErrRegionLimit 已打开的区域数达到配置上限
	ErrRegionLimit = errors.New("open region limit reached")
)
