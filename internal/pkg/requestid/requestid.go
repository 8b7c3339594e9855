// requestid — идентификатор запроса (X-Request-Id) в context.Context.
package requestid

import "context"

// Header — заголовок, в котором id путешествует между порталом и бэкендом.
const Header = "X-Request-Id"

type ctxKey struct{}

func Into(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From возвращает id запроса или "".
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
