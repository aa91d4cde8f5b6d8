// Subject implementation for RxJS
// PublishSubject：既是接收端又是多播源，用于承载动态创建的子流
package rxjs

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// PublishSubject - 发布主题
// ============================================================================

// subjectSubscription 一次订阅的注册记录，用于按身份稳定移除
type subjectSubscription struct {
	observer Observer
}

// PublishSubject 发布主题：把接收到的每个通知多播给当前所有订阅者。
// 不回放历史元素；收到终止通知后对当前与后续所有订阅者都是终止状态，
// 迟到的订阅者只会同步收到那一个终止通知。
type PublishSubject struct {
	mu        sync.RWMutex
	observers []*subjectSubscription
	completed int32
	errored   int32
	err       error
}

// NewPublishSubject 创建新的发布主题
func NewPublishSubject() *PublishSubject {
	return &PublishSubject{}
}

// ============================================================================
// Observer 一侧
// ============================================================================

// OnNext 把值多播给当前所有订阅者
func (ps *PublishSubject) OnNext(value interface{}) {
	if ps.isTerminal() {
		return
	}

	// 快照后在锁外投递，处理器可能重入地订阅或退订
	ps.mu.RLock()
	observers := make([]*subjectSubscription, len(ps.observers))
	copy(observers, ps.observers)
	ps.mu.RUnlock()

	for _, sub := range observers {
		sub.observer.OnNext(value)
	}
}

// OnError 把错误多播给当前所有订阅者并进入终止状态
func (ps *PublishSubject) OnError(err error) {
	// 终止标志与err的写入同Subscribe串行化，避免迟到订阅者读到空错误
	ps.mu.Lock()
	if ps.isTerminal() {
		ps.mu.Unlock()
		return
	}
	ps.err = err
	atomic.StoreInt32(&ps.errored, 1)
	observers := ps.observers
	ps.observers = nil
	ps.mu.Unlock()

	for _, sub := range observers {
		sub.observer.OnError(err)
	}
}

// OnComplete 把完成信号多播给当前所有订阅者并进入终止状态
func (ps *PublishSubject) OnComplete() {
	ps.mu.Lock()
	if ps.isTerminal() {
		ps.mu.Unlock()
		return
	}
	atomic.StoreInt32(&ps.completed, 1)
	observers := ps.observers
	ps.observers = nil
	ps.mu.Unlock()

	for _, sub := range observers {
		sub.observer.OnComplete()
	}
}

func (ps *PublishSubject) isTerminal() bool {
	return atomic.LoadInt32(&ps.completed) == 1 || atomic.LoadInt32(&ps.errored) == 1
}

// ============================================================================
// Observable 一侧
// ============================================================================

// Subscribe 订阅观察者。主题已终止时，同步投递那一个终止通知。
func (ps *PublishSubject) Subscribe(observer Observer) Disposable {
	ps.mu.Lock()
	if atomic.LoadInt32(&ps.errored) == 1 {
		err := ps.err
		ps.mu.Unlock()
		observer.OnError(err)
		return NewBaseDisposable(nil)
	}
	if atomic.LoadInt32(&ps.completed) == 1 {
		ps.mu.Unlock()
		observer.OnComplete()
		return NewBaseDisposable(nil)
	}

	sub := &subjectSubscription{observer: observer}
	ps.observers = append(ps.observers, sub)
	ps.mu.Unlock()

	return NewBaseDisposable(func() {
		ps.removeSubscription(sub)
	})
}

// SubscribeWithCallbacks 使用回调函数订阅
func (ps *PublishSubject) SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Disposable {
	return ps.Subscribe(NewObserver(onNext, onError, onComplete))
}

// removeSubscription 按身份移除一条订阅记录
func (ps *PublishSubject) removeSubscription(sub *subjectSubscription) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, candidate := range ps.observers {
		if candidate == sub {
			ps.observers = append(ps.observers[:i], ps.observers[i+1:]...)
			return
		}
	}
}

// HasObservers 检查是否有观察者
func (ps *PublishSubject) HasObservers() bool {
	return ps.ObserverCount() > 0
}

// ObserverCount 获取观察者数量
func (ps *PublishSubject) ObserverCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.observers)
}

// ============================================================================
// 操作符委托
// ============================================================================

// asObservable 把主题包装为普通Observable，操作符经由它委托实现
func (ps *PublishSubject) asObservable() Observable {
	return NewObservable(func(observer Observer) Disposable {
		return ps.Subscribe(observer)
	})
}

func (ps *PublishSubject) Map(transformer Transformer) Observable {
	return ps.asObservable().Map(transformer)
}
func (ps *PublishSubject) Filter(predicate Predicate) Observable { return ps.asObservable().Filter(predicate) }
func (ps *PublishSubject) Pluck(property string) Observable { return ps.asObservable().Pluck(property) }
func (ps *PublishSubject) Take(count int) Observable { return ps.asObservable().Take(count) }
func (ps *PublishSubject) TakeWhile(predicate Predicate) Observable {
	return ps.asObservable().TakeWhile(predicate)
}
func (ps *PublishSubject) Skip(count int) Observable { return ps.asObservable().Skip(count) }
func (ps *PublishSubject) SkipWhile(predicate Predicate) Observable {
	return ps.asObservable().SkipWhile(predicate)
}
func (ps *PublishSubject) Distinct() Observable { return ps.asObservable().Distinct() }
func (ps *PublishSubject) DistinctBy(keySelector KeySelector, keySerializer KeySerializer) Observable {
	return ps.asObservable().DistinctBy(keySelector, keySerializer)
}
func (ps *PublishSubject) DistinctUntilChanged() Observable {
	return ps.asObservable().DistinctUntilChanged()
}
func (ps *PublishSubject) DefaultIfEmpty(defaultValue interface{}) Observable {
	return ps.asObservable().DefaultIfEmpty(defaultValue)
}
func (ps *PublishSubject) FlatMap(selector FlatMapSelector) Observable {
	return ps.asObservable().FlatMap(selector)
}
func (ps *PublishSubject) FlatMapWithResult(selector FlatMapSelector, resultSelector ResultSelector) Observable {
	return ps.asObservable().FlatMapWithResult(selector, resultSelector)
}
func (ps *PublishSubject) SwitchMap(selector FlatMapSelector) Observable {
	return ps.asObservable().SwitchMap(selector)
}
func (ps *PublishSubject) GroupBy(keySelector KeySelector) Observable {
	return ps.asObservable().GroupBy(keySelector)
}
func (ps *PublishSubject) GroupByUntil(keySelector KeySelector, elementSelector ElementSelector, durationSelector DurationSelector, keySerializer KeySerializer) Observable {
	return ps.asObservable().GroupByUntil(keySelector, elementSelector, durationSelector, keySerializer)
}
func (ps *PublishSubject) DoOnNext(action OnNext) Observable { return ps.asObservable().DoOnNext(action) }
func (ps *PublishSubject) DoOnError(action OnError) Observable { return ps.asObservable().DoOnError(action) }
func (ps *PublishSubject) DoOnComplete(action OnComplete) Observable {
	return ps.asObservable().DoOnComplete(action)
}
func (ps *PublishSubject) IgnoreElements() Observable { return ps.asObservable().IgnoreElements() }
func (ps *PublishSubject) ToSlice() ([]interface{}, error) {
	return ps.asObservable().ToSlice()
}
