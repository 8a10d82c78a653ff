package service

import "context"

type projectIDKey struct{}

// WithProjectID tags ctx with the project a run is executed for. Tools and
// agents read it back to label their call counters.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDKey{}, projectID)
}

func ProjectIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(projectIDKey{}).(string)
	return id
}
