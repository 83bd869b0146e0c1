package filter

type EmptyFilter struct{}

func NewEmptyFilter() *EmptyFilter {
	var f EmptyFilter
	return &f
}

func (f *EmptyFilter) Accept(topic, clientID string) bool {
	return true
}
