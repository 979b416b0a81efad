package stream

import "context"

// Pair is a key/value element. Pipelines of pairs support key- and
// value-side transforms without touching the other side.
type Pair[K comparable, V any] struct {
	Key K
	Val V
}

// KeyMap transforms the key of each pair, leaving values untouched. With
// InParallel, keys are computed on a bounded pool in input order.
func KeyMap[K1, K2 comparable, V any](p *Pipeline[Pair[K1, V]], fn func(context.Context, K1) (K2, error), opts ...StageOption) *Pipeline[Pair[K2, V]] {
	opts = append([]StageOption{WithStageName("keymap")}, opts...)
	return Map(p, func(ctx context.Context, pr Pair[K1, V]) (Pair[K2, V], error) {
		key, err := fn(ctx, pr.Key)
		if err != nil {
			return Pair[K2, V]{}, err
		}
		return Pair[K2, V]{Key: key, Val: pr.Val}, nil
	}, opts...)
}

// ValueMap transforms the value of each pair, leaving keys untouched. With
// InParallel, values are computed on a bounded pool in input order.
func ValueMap[K comparable, V1, V2 any](p *Pipeline[Pair[K, V1]], fn func(context.Context, V1) (V2, error), opts ...StageOption) *Pipeline[Pair[K, V2]] {
	opts = append([]StageOption{WithStageName("valuemap")}, opts...)
	return Map(p, func(ctx context.Context, pr Pair[K, V1]) (Pair[K, V2], error) {
		val, err := fn(ctx, pr.Val)
		if err != nil {
			return Pair[K, V2]{}, err
		}
		return Pair[K, V2]{Key: pr.Key, Val: val}, nil
	}, opts...)
}

// Keys projects a pair pipeline onto its keys.
func Keys[K comparable, V any](p *Pipeline[Pair[K, V]]) *Pipeline[K] {
	return Map(p, func(_ context.Context, pr Pair[K, V]) (K, error) {
		return pr.Key, nil
	}, WithStageName("keys"))
}

// Values projects a pair pipeline onto its values.
func Values[K comparable, V any](p *Pipeline[Pair[K, V]]) *Pipeline[V] {
	return Map(p, func(_ context.Context, pr Pair[K, V]) (V, error) {
		return pr.Val, nil
	}, WithStageName("values"))
}
