package handler

import "net/http"

type ContextKey string

var (
	UserIDCtxKey     ContextKey = "userID"
	RequestIDCtxKey  ContextKey = "requestID"
	ScheduleIDCtxKey ContextKey = "scheduleID"
)

// userIDFrom returns the signed-in user, or 0 on routes where signing in is optional.
func userIDFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(UserIDCtxKey).(int64)
	return id
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDCtxKey).(string)
	return id
}

func scheduleIDFrom(r *http.Request) int64 {
	return r.Context().Value(ScheduleIDCtxKey).(int64)
}
