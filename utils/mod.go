package utils

// PopBack removes and returns the last element.
func PopBack[T any](slice []T) (T, []T) {
	last := len(slice) - 1
	item := slice[last]
	var zero T
	slice[last] = zero
	return item, slice[:last]
}

// PushFront inserts item at the head.
func PushFront[T any](slice []T, item T) []T {
	slice = append(slice, item)
	copy(slice[1:], slice[:len(slice)-1])
	slice[0] = item
	return slice
}
