package language

import "context"

type contextKey string

func (c contextKey) String() string {
	return "chatkitd/language/" + string(c)
}

const ctxKeyActive = contextKey("activeLanguage")

// ToContext records the resolved active language for the remainder of a
// request.
func ToContext(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, ctxKeyActive, code)
}

// FromContext extracts the resolved active language, or "" when none was
// recorded.
func FromContext(ctx context.Context) string {
	code, ok := ctx.Value(ctxKeyActive).(string)
	if !ok {
		return ""
	}
	return code
}
