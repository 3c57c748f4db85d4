package di

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrInterfaceMustBePointer is returned when a non-pointer interface is registered.
	ErrInterfaceMustBePointer = errors.New("interface must be a pointer type")
	// ErrTargetMustBePointer is returned when a non-pointer target is passed to Resolve.
	ErrTargetMustBePointer = errors.New("target must be a pointer")
	// ErrNoFactoryRegistered is returned when no factory is registered for a type.
	ErrNoFactoryRegistered = errors.New("no factory registered")
)

// Factory is a function that creates an instance of a service.
type Factory func(*Container) (interface{}, error)

// Container manages dependency injection.
type Container struct {
	mu        sync.RWMutex
	services  map[reflect.Type]interface{}
	factories map[reflect.Type]Factory
}

// New creates a new DI container.
func New() *Container {
	return &Container{
		services:  make(map[reflect.Type]interface{}),
		factories: make(map[reflect.Type]Factory),
	}
}

// Register registers a service factory for the interface pointed to by iface.
func (c *Container) Register(iface interface{}, factory Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := reflect.TypeOf(iface)
	if t.Kind() != reflect.Ptr {
		return ErrInterfaceMustBePointer
	}
	elem := t.Elem()
	var key reflect.Type
	if elem.Kind() == reflect.Interface {
		key = elem
	} else {
		key = t
	}
	c.factories[key] = factory
	return nil
}

// Resolve populates target (a pointer) with the registered instance, creating
// it on first use. Instances are singletons per container.
func (c *Container) Resolve(target interface{}) error {
	t := reflect.TypeOf(target)
	if t == nil || t.Kind() != reflect.Ptr {
		return ErrTargetMustBePointer
	}
	// interfaces key on the interface type, concrete services on their
	// pointer type; either way the key is what target points at
	key := t.Elem()

	c.mu.RLock()
	instance, ok := c.services[key]
	c.mu.RUnlock()
	if ok {
		reflect.ValueOf(target).Elem().Set(reflect.ValueOf(instance))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if instance, ok = c.services[key]; !ok {
		factory, found := c.factories[key]
		if !found {
			return fmt.Errorf("%w for %s", ErrNoFactoryRegistered, key)
		}
		var err error
		instance, err = factory(c)
		if err != nil {
			return fmt.Errorf("factory failed for %s: %w", key, err)
		}
		c.services[key] = instance
	}
	reflect.ValueOf(target).Elem().Set(reflect.ValueOf(instance))
	return nil
}
