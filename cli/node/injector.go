package node

import (
	"reflect"
	"sync"

	"golang.org/x/xerrors"
)

// reflectInjector is a dependency injector that matches the dependencies by
// their type. A dependency of the exact type wins, otherwise the first
// dependency injected that is assignable is returned.
//
// - implements node.Injector
type reflectInjector struct {
	sync.Mutex
	deps []interface{}
}

// NewInjector returns an empty injector.
func NewInjector() Injector {
	return &reflectInjector{}
}

// Resolve implements node.Injector. It populates the pointer with a compatible
// dependency.
func (inj *reflectInjector) Resolve(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return xerrors.New("expect a pointer")
	}

	if !rv.Elem().IsValid() {
		return xerrors.Errorf("reflect value '%v' is invalid", rv)
	}

	target := rv.Elem().Type()

	inj.Lock()
	defer inj.Unlock()

	var match interface{}

	for _, dep := range inj.deps {
		typ := reflect.TypeOf(dep)

		if typ == target {
			match = dep
			break
		}

		if match == nil && typ.AssignableTo(target) {
			match = dep
		}
	}

	if match == nil {
		return xerrors.Errorf("couldn't find dependency for '%v'", target)
	}

	rv.Elem().Set(reflect.ValueOf(match))

	return nil
}

// Inject implements node.Injector. It replaces the dependency of the same type
// if any.
func (inj *reflectInjector) Inject(v interface{}) {
	inj.Lock()
	defer inj.Unlock()

	for i, dep := range inj.deps {
		if reflect.TypeOf(dep) == reflect.TypeOf(v) {
			inj.deps[i] = v
			return
		}
	}

	inj.deps = append(inj.deps, v)
}
