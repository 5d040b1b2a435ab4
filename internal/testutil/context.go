package testutil

import (
	"context"
	"net/http"

	"ticketDesk/models"
)

func contextWithCaller(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, callerKey{}, u)
}

func callerFrom(r *http.Request) models.User {
	u, _ := r.Context().Value(callerKey{}).(models.User)
	return u
}
