package gallery

import (
	"context"

	"github.com/pders01/pixl/internal/provider"
)

// Fetch runs req against f. It blocks; callers on the UI loop should run
// it off-loop and hand the Outcome back to Session.Apply.
func Fetch(ctx context.Context, f provider.Fetcher, req FetchRequest) Outcome {
	res, err := f.FetchImages(ctx, req.Query, req.Page)
	return Outcome{Request: req, Result: res, Err: err}
}
