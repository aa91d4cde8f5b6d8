// Package rxjs provides push-based reactive stream primitives for Go
// 基于推送模型的响应式流引擎：可组合的操作符、确定性的订阅取消、动态键分组
package rxjs

// ============================================================================
// 核心回调类型定义
// ============================================================================

// OnNext 处理下一个值的函数
type OnNext func(value interface{})

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// Transformer 转换函数，用于映射；index为元素在上游序列中的0基序号。
// 返回的error会被操作符捕获并转换为一次终止性的OnError通知。
type Transformer func(value interface{}, index int) (interface{}, error)

// Predicate 谓词函数，用于过滤；错误同样被捕获为OnError
type Predicate func(value interface{}, index int) (bool, error)

// KeySelector 从元素中提取分组键
type KeySelector func(value interface{}) (interface{}, error)

// ElementSelector 从元素中提取写入分组的值，nil时为恒等映射
type ElementSelector func(value interface{}) (interface{}, error)

// DurationSelector 为每个新分组生成其生存期Observable，
// 该Observable的第一个通知（元素或完成）标志着分组过期
type DurationSelector func(group *GroupedObservable) (Observable, error)

// KeySerializer 把分组键序列化为规范的、可比较的字符串表示。
// 前提条件：只有相等的键才会序列化为相同的字符串（由调用方保证）。
type KeySerializer func(key interface{}) (string, error)

// FlatMapSelector 为每个元素生成一个内部Observable
type FlatMapSelector func(value interface{}) (Observable, error)

// ResultSelector 组合外部元素和内部元素
type ResultSelector func(outerValue, innerValue interface{}) (interface{}, error)

// ============================================================================
// 观察者契约
// ============================================================================

// Observer 观察者接口：三个通知方法构成的接收端。
// 终止一次(terminal-once)不变式：同一订阅在投递OnError或OnComplete之后，
// 不会再对该观察者发起任何调用。
type Observer interface {
	// OnNext 接收下一个值
	OnNext(value interface{})
	// OnError 接收终止性错误
	OnError(err error)
	// OnComplete 接收完成信号
	OnComplete()
}

// callbackObserver 基于回调函数的Observer适配器，nil回调会被安全忽略
type callbackObserver struct {
	onNext     OnNext
	onError    OnError
	onComplete OnComplete
}

func (c *callbackObserver) OnNext(value interface{}) {
	if c.onNext != nil {
		c.onNext(value)
	}
}

func (c *callbackObserver) OnError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

func (c *callbackObserver) OnComplete() {
	if c.onComplete != nil {
		c.onComplete()
	}
}

// NewObserver 从回调函数创建Observer，任意回调可以为nil
func NewObserver(onNext OnNext, onError OnError, onComplete OnComplete) Observer {
	return &callbackObserver{onNext: onNext, onError: onError, onComplete: onComplete}
}

// ============================================================================
// 生命周期管理
// ============================================================================

// Disposable 可释放资源的接口，代表一次订阅的清理动作。
// Dispose是幂等的：重复调用与调用一次效果相同。
type Disposable interface {
	// Dispose 释放资源
	Dispose()
	// IsDisposed 检查是否已释放
	IsDisposed() bool
}

// ============================================================================
// Observable 核心接口
// ============================================================================

// Observable 可观察序列的核心接口。无状态、可重复订阅，
// 每次订阅彼此独立并返回属于该订阅的Disposable。
type Observable interface {
	// Subscribe 订阅观察者
	Subscribe(observer Observer) Disposable

	// SubscribeWithCallbacks 使用回调函数订阅
	SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Disposable

	// 转换操作符
	Map(transformer Transformer) Observable
	Filter(predicate Predicate) Observable
	Pluck(property string) Observable
	Take(count int) Observable
	TakeWhile(predicate Predicate) Observable
	Skip(count int) Observable
	SkipWhile(predicate Predicate) Observable
	Distinct() Observable
	DistinctBy(keySelector KeySelector, keySerializer KeySerializer) Observable
	DistinctUntilChanged() Observable
	DefaultIfEmpty(defaultValue interface{}) Observable

	// 展平操作符
	FlatMap(selector FlatMapSelector) Observable
	FlatMapWithResult(selector FlatMapSelector, resultSelector ResultSelector) Observable
	SwitchMap(selector FlatMapSelector) Observable

	// 动态分组操作符
	GroupBy(keySelector KeySelector) Observable
	GroupByUntil(keySelector KeySelector, elementSelector ElementSelector, durationSelector DurationSelector, keySerializer KeySerializer) Observable

	// 副作用操作符
	DoOnNext(action OnNext) Observable
	DoOnError(action OnError) Observable
	DoOnComplete(action OnComplete) Observable
	IgnoreElements() Observable

	// ToSlice 阻塞收集所有元素直到序列终止
	ToSlice() ([]interface{}, error)
}

// ============================================================================
// Subject 主题接口
// ============================================================================

// Subject 既是Observable又是Observer：接收端收到的每个通知
// 都会多播给当前所有订阅者
type Subject interface {
	Observable
	Observer

	// HasObservers 检查是否有观察者
	HasObservers() bool

	// ObserverCount 获取观察者数量
	ObserverCount() int
}
