// Observable implementation for RxJS
// Observable核心实现：订阅边界、终止一次保障、操作符提升模式与基础操作符
package rxjs

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// ============================================================================
// Observable 核心实现
// ============================================================================

// observableImpl Observable的核心实现：一个订阅函数即一个Observable
type observableImpl struct {
	source func(observer Observer) Disposable
}

// NewObservable 创建新的Observable。source在每次Subscribe时被调用一次，
// 负责向观察者投递通知并返回该次订阅的Disposable。
// 投递模型为同步调用栈：source可以在Subscribe返回之前发射全部通知。
func NewObservable(source func(observer Observer) Disposable) Observable {
	return &observableImpl{source: source}
}

// Subscribe 订阅观察者。传入的观察者被包装为自动分离的观察者：
// 终止通知之后不再有任何调用到达它，终止同时会释放上游订阅。
func (o *observableImpl) Subscribe(observer Observer) Disposable {
	ado := &autoDetachObserver{
		observer: observer,
		upstream: NewSingleAssignmentDisposable(),
	}
	ado.upstream.Set(o.source(ado))
	return ado
}

// SubscribeWithCallbacks 使用回调函数订阅
func (o *observableImpl) SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Disposable {
	return o.Subscribe(NewObserver(onNext, onError, onComplete))
}

// ============================================================================
// 终止探测与自动分离观察者
// ============================================================================

// stopper 消费端终止探测。同步生产者在两次发射之间探测它的观察者，
// 以便下游在发射过程中（例如Take补足完成信号后）能够停住生产循环。
type stopper interface {
	isStopped() bool
}

// observerStopped 探测观察者是否已不再接收通知
func observerStopped(observer Observer) bool {
	s, ok := observer.(stopper)
	return ok && s.isStopped()
}

// autoDetachObserver 自动分离观察者：实施终止一次不变式。
// 它同时就是Subscribe返回给消费者的Disposable，
// Dispose可以在通知处理器内部重入调用。
type autoDetachObserver struct {
	observer Observer
	upstream *SingleAssignmentDisposable
	stopped  int32
}

func (a *autoDetachObserver) OnNext(value interface{}) {
	if atomic.LoadInt32(&a.stopped) == 1 {
		return
	}
	a.observer.OnNext(value)
}

func (a *autoDetachObserver) OnError(err error) {
	if atomic.CompareAndSwapInt32(&a.stopped, 0, 1) {
		a.observer.OnError(err)
		a.upstream.Dispose()
	}
}

func (a *autoDetachObserver) OnComplete() {
	if atomic.CompareAndSwapInt32(&a.stopped, 0, 1) {
		a.observer.OnComplete()
		a.upstream.Dispose()
	}
}

// Dispose 停止后续通知投递并释放上游订阅
func (a *autoDetachObserver) Dispose() {
	atomic.StoreInt32(&a.stopped, 1)
	a.upstream.Dispose()
}

// IsDisposed 检查是否已释放
func (a *autoDetachObserver) IsDisposed() bool {
	return atomic.LoadInt32(&a.stopped) == 1
}

func (a *autoDetachObserver) isStopped() bool {
	return atomic.LoadInt32(&a.stopped) == 1 || observerStopped(a.observer)
}

// ============================================================================
// 操作符提升模式
// ============================================================================

// forwardObserver 操作符的派生观察者：按元素策略由next钩子给出，
// 终止路径默认原样转发；fail/complete可按操作符语义覆盖。
// 任一终止通知投递后置位done，其余通知被吞掉，同时释放上游订阅。
type forwardObserver struct {
	downstream Observer
	upstream   *SingleAssignmentDisposable
	next       func(value interface{})
	fail       func(err error)
	complete   func()
	done       int32
}

func (f *forwardObserver) OnNext(value interface{}) {
	if atomic.LoadInt32(&f.done) == 1 {
		return
	}
	if f.next != nil {
		f.next(value)
	} else {
		f.downstream.OnNext(value)
	}
}

func (f *forwardObserver) OnError(err error) {
	if !atomic.CompareAndSwapInt32(&f.done, 0, 1) {
		return
	}
	if f.fail != nil {
		f.fail(err)
	} else {
		f.downstream.OnError(err)
	}
	f.detach()
}

func (f *forwardObserver) OnComplete() {
	if !atomic.CompareAndSwapInt32(&f.done, 0, 1) {
		return
	}
	if f.complete != nil {
		f.complete()
	} else {
		f.downstream.OnComplete()
	}
	f.detach()
}

// stop 置位done但不投递任何通知，用于把终止决定移交给旁路
func (f *forwardObserver) stop() {
	atomic.StoreInt32(&f.done, 1)
}

func (f *forwardObserver) isStopped() bool {
	return atomic.LoadInt32(&f.done) == 1
}

func (f *forwardObserver) detach() {
	if f.upstream != nil {
		f.upstream.Dispose()
	}
}

// lift 操作符提升模式：为每次订阅构造一个派生观察者，
// 用它订阅源Observable，并把源订阅包装为本操作符的Disposable返回，
// 使下游的取消沿管道向上游传播。
func (o *observableImpl) lift(build func(src *forwardObserver)) Observable {
	return NewObservable(func(observer Observer) Disposable {
		src := &forwardObserver{
			downstream: observer,
			upstream:   NewSingleAssignmentDisposable(),
		}
		build(src)
		src.upstream.Set(o.Subscribe(src))
		return src.upstream
	})
}

// ============================================================================
// 转换操作符
// ============================================================================

// Map 转换操作符：对每个元素应用transformer并转发结果
func (o *observableImpl) Map(transformer Transformer) Observable {
	return o.lift(func(src *forwardObserver) {
		index := 0
		src.next = func(value interface{}) {
			result, err := transformer(value, index)
			index++
			if err != nil {
				src.OnError(err)
				return
			}
			src.downstream.OnNext(result)
		}
	})
}

// Filter 过滤操作符：只转发使predicate为真的元素
func (o *observableImpl) Filter(predicate Predicate) Observable {
	return o.lift(func(src *forwardObserver) {
		index := 0
		src.next = func(value interface{}) {
			ok, err := predicate(value, index)
			index++
			if err != nil {
				src.OnError(err)
				return
			}
			if ok {
				src.downstream.OnNext(value)
			}
		}
	})
}

// Pluck 从每个元素中提取命名属性：支持map[string]interface{}的键
// 和结构体（或结构体指针）的导出字段
func (o *observableImpl) Pluck(property string) Observable {
	return o.Map(func(value interface{}, _ int) (interface{}, error) {
		if m, ok := value.(map[string]interface{}); ok {
			return m[property], nil
		}

		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Ptr {
			rv = rv.Elem()
		}
		if rv.Kind() == reflect.Struct {
			field := rv.FieldByName(property)
			if field.IsValid() && field.CanInterface() {
				return field.Interface(), nil
			}
		}
		return nil, fmt.Errorf("rxjs: 无法从类型 %T 中提取属性 %q", value, property)
	})
}

// Take 只转发前count个元素，然后补足完成信号。
// count为负数时panic(ErrNegativeCount)；count为0时立即完成且不订阅上游。
func (o *observableImpl) Take(count int) Observable {
	if count < 0 {
		panic(ErrNegativeCount)
	}
	return NewObservable(func(observer Observer) Disposable {
		if count == 0 {
			observer.OnComplete()
			return NewBaseDisposable(nil)
		}

		src := &forwardObserver{
			downstream: observer,
			upstream:   NewSingleAssignmentDisposable(),
		}
		remaining := count
		src.next = func(value interface{}) {
			remaining--
			src.downstream.OnNext(value)
			if remaining == 0 {
				src.OnComplete()
			}
		}
		src.upstream.Set(o.Subscribe(src))
		return src.upstream
	})
}

// TakeWhile 转发元素直到predicate首次为假，随后补足完成信号
func (o *observableImpl) TakeWhile(predicate Predicate) Observable {
	return o.lift(func(src *forwardObserver) {
		index := 0
		src.next = func(value interface{}) {
			ok, err := predicate(value, index)
			index++
			if err != nil {
				src.OnError(err)
				return
			}
			if !ok {
				src.OnComplete()
				return
			}
			src.downstream.OnNext(value)
		}
	})
}

// Skip 丢弃前count个元素，之后原样转发
func (o *observableImpl) Skip(count int) Observable {
	if count < 0 {
		panic(ErrNegativeCount)
	}
	return o.lift(func(src *forwardObserver) {
		remaining := count
		src.next = func(value interface{}) {
			if remaining > 0 {
				remaining--
				return
			}
			src.downstream.OnNext(value)
		}
	})
}

// SkipWhile 在predicate保持为真期间丢弃元素；
// 首次为假之后原样转发且不再测试
func (o *observableImpl) SkipWhile(predicate Predicate) Observable {
	return o.lift(func(src *forwardObserver) {
		index := 0
		skipping := true
		src.next = func(value interface{}) {
			if skipping {
				ok, err := predicate(value, index)
				index++
				if err != nil {
					src.OnError(err)
					return
				}
				if ok {
					return
				}
				skipping = false
			}
			src.downstream.OnNext(value)
		}
	})
}

// ============================================================================
// 去重操作符
// ============================================================================

// defaultKeySerializer 默认键序列化：带类型前缀的规范字符串表示
func defaultKeySerializer(key interface{}) (string, error) {
	return fmt.Sprintf("%T:%v", key, key), nil
}

// serializeKey 应用键序列化器，nil时使用默认序列化
func serializeKey(keySerializer KeySerializer, key interface{}) (string, error) {
	if keySerializer != nil {
		return keySerializer(key)
	}
	return defaultKeySerializer(key)
}

// Distinct 去重：按元素自身（恒等键、默认序列化）去重
func (o *observableImpl) Distinct() Observable {
	return o.DistinctBy(nil, nil)
}

// DistinctBy 去重：维护订阅生命周期内见过的序列化键集合，
// 只在键首次出现时转发元素。keySelector为nil时取元素本身，
// keySerializer为nil时使用默认序列化。
func (o *observableImpl) DistinctBy(keySelector KeySelector, keySerializer KeySerializer) Observable {
	return o.lift(func(src *forwardObserver) {
		seen := make(map[string]struct{})
		src.next = func(value interface{}) {
			key := value
			if keySelector != nil {
				selected, err := keySelector(value)
				if err != nil {
					src.OnError(err)
					return
				}
				key = selected
			}
			serialized, err := serializeKey(keySerializer, key)
			if err != nil {
				src.OnError(err)
				return
			}
			if _, ok := seen[serialized]; ok {
				return
			}
			seen[serialized] = struct{}{}
			src.downstream.OnNext(value)
		}
	})
}

// DistinctUntilChanged 过滤掉连续重复的元素
func (o *observableImpl) DistinctUntilChanged() Observable {
	return o.lift(func(src *forwardObserver) {
		var last interface{}
		hasLast := false
		src.next = func(value interface{}) {
			if hasLast && reflect.DeepEqual(last, value) {
				return
			}
			last = value
			hasLast = true
			src.downstream.OnNext(value)
		}
	})
}
