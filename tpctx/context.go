// Package tpctx carries cli wide settings down to the link drivers.
package tpctx

import "context"

type verboseKey struct{}

// IsVerbose reports whether raw frames and reports should be dumped.
func IsVerbose(ctx context.Context) bool {
	v, _ := ctx.Value(verboseKey{}).(bool)
	return v
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, verboseKey{}, value)
}
