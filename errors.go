// Sentinel errors for RxJS
// 库级别的哨兵错误定义
package rxjs

import "errors"

var (
	// ErrNegativeCount 计数参数不能为负数
	ErrNegativeCount = errors.New("rxjs: 计数不能为负数")

	// ErrDisposableAssigned SingleAssignmentDisposable只允许赋值一次
	ErrDisposableAssigned = errors.New("rxjs: Disposable已被赋值")
)
