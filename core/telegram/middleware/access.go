package middleware

import tele "gopkg.in/telebot.v4"

// OperatorOptions defines how operator-only checks should behave.
type OperatorOptions struct {
	// Operators holds the privileged user ids loaded once at startup.
	Operators map[int64]struct{}
	OnReject  tele.HandlerFunc
}

// NewOperatorOptions builds OperatorOptions from the configured id list.
func NewOperatorOptions(ids []int64, onReject tele.HandlerFunc) OperatorOptions {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return OperatorOptions{Operators: set, OnReject: onReject}
}

// IsOperator reports whether the given user id belongs to the operator set.
func (o OperatorOptions) IsOperator(id int64) bool {
	_, ok := o.Operators[id]
	return ok
}

// OperatorOnlyMiddleware ensures that only a configured operator can invoke downstream handlers.
func OperatorOnlyMiddleware(opts OperatorOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if len(opts.Operators) == 0 || !opts.IsOperator(c.Sender().ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
