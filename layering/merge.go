// Package layering merges option snapshots ordered from strongest to weakest.
//
// Maps merge per key, so a patch carrying {"enabledSets": {"katakana": true}}
// flips one member of a selection and keeps the rest. A nil entry in a
// stronger layer means "not set" and lets the weaker value through; every
// other scalar in a stronger layer wins, including false and "".
package layering

import "reflect"

// MergeLayers composes layers ordered strongest first and returns a new value.
// Inputs are never modified and the result shares no maps or slices with
// them.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}
	merged := deepCopy(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = overlay(reflect.ValueOf(layers[i]), merged)
	}
	return toType[T](merged)
}

// Clone returns a deep copy of value.
func Clone[T any](value T) T {
	return toType[T](deepCopy(reflect.ValueOf(value)))
}

func toType[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	if v.Type() == target {
		return v.Interface().(T)
	}
	if !v.Type().ConvertibleTo(target) {
		return zero
	}
	out := reflect.New(target).Elem()
	out.Set(v.Convert(target))
	return out.Interface().(T)
}

func isUnset(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Interface, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// overlay merges strong on top of weak.
func overlay(strong, weak reflect.Value) reflect.Value {
	if isUnset(strong) {
		return deepCopy(weak)
	}
	if isUnset(weak) {
		return deepCopy(strong)
	}
	switch strong.Kind() {
	case reflect.Interface:
		inner := overlay(strong.Elem(), unwrap(weak))
		boxed := reflect.New(strong.Type()).Elem()
		boxed.Set(inner)
		return boxed
	case reflect.Pointer:
		if weak.Kind() != reflect.Pointer {
			return deepCopy(strong)
		}
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(overlay(strong.Elem(), weak.Elem()))
		return out
	case reflect.Map:
		weak = unwrap(weak)
		if weak.Kind() != reflect.Map || weak.Type().Key() != strong.Type().Key() {
			return deepCopy(strong)
		}
		return overlayMap(strong, weak)
	case reflect.Struct:
		if weak.Type() != strong.Type() {
			return deepCopy(strong)
		}
		out := reflect.New(strong.Type()).Elem()
		for i := 0; i < strong.NumField(); i++ {
			if !out.Field(i).CanSet() {
				continue
			}
			out.Field(i).Set(overlay(strong.Field(i), weak.Field(i)))
		}
		return out
	default:
		return deepCopy(strong)
	}
}

func overlayMap(strong, weak reflect.Value) reflect.Value {
	out := reflect.MakeMapWithSize(strong.Type(), strong.Len()+weak.Len())
	elem := strong.Type().Elem()
	iter := weak.MapRange()
	for iter.Next() {
		value := unwrap(deepCopy(iter.Value()))
		if !value.IsValid() {
			continue
		}
		if !value.Type().AssignableTo(elem) {
			continue
		}
		out.SetMapIndex(iter.Key(), value)
	}
	iter = strong.MapRange()
	for iter.Next() {
		key := iter.Key()
		value := iter.Value()
		existing := out.MapIndex(key)
		if existing.IsValid() {
			value = overlay(value, existing)
		} else {
			value = deepCopy(value)
		}
		if !value.IsValid() {
			continue
		}
		out.SetMapIndex(key, value)
	}
	return out
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func deepCopy(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		boxed := reflect.New(v.Type()).Elem()
		boxed.Set(deepCopy(v.Elem()))
		return boxed
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if out.Field(i).CanSet() {
				out.Field(i).Set(deepCopy(v.Field(i)))
			}
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
