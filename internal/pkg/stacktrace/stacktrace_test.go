package stacktrace

import (
	"slices"
	"testing"
)

func TestInternalPaths(t *testing.T) {

	t.Run("KeepsOnlyInternalFrames", func(t *testing.T) {

		// Arrange
		stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/mailbite/internal/pkg/router.middlewareRecoverer.func1.1()
	/src/mailbite/internal/pkg/router/middleware_recover.go:28 +0x1a5
panic({0x1234, 0x5678})
	/usr/local/go/src/runtime/panic.go:785 +0x132
github.com/shandysiswandi/mailbite/internal/campaign/inbound.(*endpoint).Send(...)
	/src/mailbite/internal/campaign/inbound/http_endpoint.go:90
`)

		// Act
		paths := InternalPaths(stack)

		// Assert
		want := []string{
			"internal/pkg/router/middleware_recover.go:28",
			"internal/campaign/inbound/http_endpoint.go:90",
		}
		if !slices.Equal(paths, want) {
			t.Fatalf("expected %v, got %v", want, paths)
		}
	})

	t.Run("NoInternalFrames", func(t *testing.T) {

		// Act
		paths := InternalPaths([]byte("goroutine 1 [running]:\nmain.main()\n\t/src/main.go:10\n"))

		// Assert
		if len(paths) != 0 {
			t.Fatalf("expected no paths, got %v", paths)
		}
	})
}
