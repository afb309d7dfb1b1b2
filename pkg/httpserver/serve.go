package httpserver

import (
	"context"
	"net/http"

	"github.com/dcollide/birthdayparty/pkg/program"
	"github.com/dcollide/birthdayparty/pkg/util"
)

// Serve spawns an HTTP server listening on addr as part of group,
// following the teacher's NewServersFromConfigurationAndServe
// pattern: one routine closes the server when the program's context
// is cancelled, a sibling runs ListenAndServe and reports any failure
// other than the expected post-shutdown http.ErrServerClosed.
func Serve(addr string, handler http.Handler, group program.Group) {
	server := &http.Server{Addr: addr, Handler: handler}

	group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		<-ctx.Done()
		return server.Close()
	})
	group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return util.StatusWrapf(err, "HTTP server on %s failed", addr)
		}
		return nil
	})
}
