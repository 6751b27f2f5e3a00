package tools

import "context"

// userIDKey is an unexported context key for zero-allocation type safety.
type userIDKey struct{}

// WithUserID stores the authenticated bank user id in context. The
// assistant layer injects it; per-user tools read it so the model never
// chooses whose data to query.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFrom retrieves the bank user id from context. The second return is
// false when no id was set.
func UserIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}
