package app

import (
	"testing"

	"go.uber.org/fx"
)

func TestGraphs(t *testing.T) {
	for name, opts := range map[string]fx.Option{"http": HTTP, "worker": Worker} {
		t.Run(name, func(t *testing.T) {
			if err := fx.ValidateApp(opts); err != nil {
				t.Fatalf("invalid %s graph: %v", name, err)
			}
		})
	}
}
