// Disposable family for RxJS
// 订阅生命周期管理：基础、组合、单次赋值与引用计数的可释放资源
package rxjs

import (
	"sync"
)

// ============================================================================
// BaseDisposable 基础可释放资源
// ============================================================================

// BaseDisposable 在首次Dispose时执行清理动作，之后的调用不再有任何效果
type BaseDisposable struct {
	mu       sync.Mutex
	disposed bool
	action   func()
}

// NewBaseDisposable 创建基础可释放资源，action可以为nil
func NewBaseDisposable(action func()) *BaseDisposable {
	return &BaseDisposable{action: action}
}

// Dispose 释放资源
func (bd *BaseDisposable) Dispose() {
	bd.mu.Lock()
	if bd.disposed {
		bd.mu.Unlock()
		return
	}
	bd.disposed = true
	action := bd.action
	bd.action = nil
	bd.mu.Unlock()

	if action != nil {
		action()
	}
}

// IsDisposed 检查是否已释放
func (bd *BaseDisposable) IsDisposed() bool {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return bd.disposed
}

// ============================================================================
// CompositeDisposable 组合式资源管理器
// ============================================================================

// CompositeDisposable 持有一组动态增减的Disposable。
// 释放组合后，当前持有的全部成员被释放，此后加入的成员立即被释放；
// 成员也可以被单独移除而不释放（用于丢弃已过期的条目）。
type CompositeDisposable struct {
	mu        sync.Mutex
	disposed  bool
	resources []Disposable
}

// NewCompositeDisposable 创建组合式资源管理器
func NewCompositeDisposable(disposables ...Disposable) *CompositeDisposable {
	return &CompositeDisposable{
		resources: append(make([]Disposable, 0, len(disposables)), disposables...),
	}
}

// Add 添加可释放资源，若组合已被释放则立即释放该资源
func (cd *CompositeDisposable) Add(disposable Disposable) {
	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		disposable.Dispose()
		return
	}
	cd.resources = append(cd.resources, disposable)
	cd.mu.Unlock()
}

// Remove 移除成员但不释放它，返回是否找到该成员
func (cd *CompositeDisposable) Remove(disposable Disposable) bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()

	for i, resource := range cd.resources {
		if resource == disposable {
			cd.resources = append(cd.resources[:i], cd.resources[i+1:]...)
			return true
		}
	}
	return false
}

// Dispose 释放所有资源
func (cd *CompositeDisposable) Dispose() {
	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		return
	}
	cd.disposed = true
	resources := cd.resources
	cd.resources = nil
	cd.mu.Unlock()

	// 在锁外释放，成员的清理动作可能重入组合本身
	for _, resource := range resources {
		resource.Dispose()
	}
}

// IsDisposed 检查是否已释放
func (cd *CompositeDisposable) IsDisposed() bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.disposed
}

// Len 当前持有的成员数量
func (cd *CompositeDisposable) Len() int {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return len(cd.resources)
}

// ============================================================================
// SingleAssignmentDisposable 单次赋值的可释放资源
// ============================================================================

// SingleAssignmentDisposable 只允许赋值一次的Disposable单元格。
// 若在赋值前被释放，单元格会记住已释放状态，并在赋值时立即释放底层资源，
// 因此释放之后的赋值不会泄漏。
type SingleAssignmentDisposable struct {
	mu       sync.Mutex
	disposed bool
	assigned bool
	current  Disposable
}

// NewSingleAssignmentDisposable 创建单次赋值的可释放资源
func NewSingleAssignmentDisposable() *SingleAssignmentDisposable {
	return &SingleAssignmentDisposable{}
}

// Set 赋值底层Disposable，重复赋值会panic(ErrDisposableAssigned)
func (sad *SingleAssignmentDisposable) Set(disposable Disposable) {
	sad.mu.Lock()
	if sad.assigned {
		sad.mu.Unlock()
		panic(ErrDisposableAssigned)
	}
	sad.assigned = true
	shouldDispose := sad.disposed
	if !shouldDispose {
		sad.current = disposable
	}
	sad.mu.Unlock()

	if shouldDispose && disposable != nil {
		disposable.Dispose()
	}
}

// Get 获取底层Disposable，未赋值或已释放时返回nil
func (sad *SingleAssignmentDisposable) Get() Disposable {
	sad.mu.Lock()
	defer sad.mu.Unlock()
	return sad.current
}

// Dispose 释放资源
func (sad *SingleAssignmentDisposable) Dispose() {
	sad.mu.Lock()
	if sad.disposed {
		sad.mu.Unlock()
		return
	}
	sad.disposed = true
	current := sad.current
	sad.current = nil
	sad.mu.Unlock()

	if current != nil {
		current.Dispose()
	}
}

// IsDisposed 检查是否已释放
func (sad *SingleAssignmentDisposable) IsDisposed() bool {
	sad.mu.Lock()
	defer sad.mu.Unlock()
	return sad.disposed
}

// ============================================================================
// RefCountDisposable 引用计数的可释放资源
// ============================================================================

// RefCountDisposable 包装一个底层Disposable并派发依赖令牌。
// 底层资源恰好释放一次：当主释放已被请求、且曾派发的每个依赖令牌
// 都已释放时（两个条件满足的先后顺序无关）。
// 用于"只要还有任何分组未结束，就保持上游订阅存活"。
type RefCountDisposable struct {
	mu              sync.Mutex
	underlying      Disposable
	primaryDisposed bool
	disposed        bool
	count           int
}

// NewRefCountDisposable 创建引用计数的可释放资源
func NewRefCountDisposable(underlying Disposable) *RefCountDisposable {
	return &RefCountDisposable{underlying: underlying}
}

// GetDisposable 派发一个新的依赖令牌
func (rcd *RefCountDisposable) GetDisposable() Disposable {
	rcd.mu.Lock()
	defer rcd.mu.Unlock()

	if rcd.disposed {
		return NewBaseDisposable(nil)
	}
	rcd.count++
	return &refCountInner{parent: rcd}
}

// Dispose 请求主释放；若没有未释放的依赖令牌，立即释放底层资源
func (rcd *RefCountDisposable) Dispose() {
	rcd.mu.Lock()
	if rcd.disposed || rcd.primaryDisposed {
		rcd.mu.Unlock()
		return
	}
	rcd.primaryDisposed = true
	underlying := rcd.tryReleaseLocked()
	rcd.mu.Unlock()

	if underlying != nil {
		underlying.Dispose()
	}
}

// IsDisposed 检查底层资源是否已释放
func (rcd *RefCountDisposable) IsDisposed() bool {
	rcd.mu.Lock()
	defer rcd.mu.Unlock()
	return rcd.disposed
}

// tryReleaseLocked 两个条件都满足时返回待释放的底层资源，调用方必须持有锁
func (rcd *RefCountDisposable) tryReleaseLocked() Disposable {
	if rcd.primaryDisposed && rcd.count == 0 && !rcd.disposed {
		rcd.disposed = true
		underlying := rcd.underlying
		rcd.underlying = nil
		return underlying
	}
	return nil
}

// refCountInner 依赖令牌，释放时递减父级计数
type refCountInner struct {
	mu       sync.Mutex
	disposed bool
	parent   *RefCountDisposable
}

func (ri *refCountInner) Dispose() {
	ri.mu.Lock()
	if ri.disposed {
		ri.mu.Unlock()
		return
	}
	ri.disposed = true
	ri.mu.Unlock()

	ri.parent.mu.Lock()
	ri.parent.count--
	underlying := ri.parent.tryReleaseLocked()
	ri.parent.mu.Unlock()

	if underlying != nil {
		underlying.Dispose()
	}
}

func (ri *refCountInner) IsDisposed() bool {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	return ri.disposed
}
