package server

import "testing"

func TestToolAnnotations(t *testing.T) {
	type Input struct{}
	handler := func(in Input) (string, error) { return "", nil }

	tests := []struct {
		name  string
		build func(b *ToolBuilder) *ToolBuilder
		check func(t *testing.T, a *ToolAnnotations)
	}{
		{
			name:  "read only",
			build: func(b *ToolBuilder) *ToolBuilder { return b.ReadOnly() },
			check: func(t *testing.T, a *ToolAnnotations) {
				if !*a.ReadOnlyHint || *a.DestructiveHint {
					t.Errorf("annotations = %+v", a)
				}
			},
		},
		{
			name:  "destructive and idempotent",
			build: func(b *ToolBuilder) *ToolBuilder { return b.Destructive().Idempotent() },
			check: func(t *testing.T, a *ToolAnnotations) {
				if *a.ReadOnlyHint || !*a.DestructiveHint || !*a.IdempotentHint {
					t.Errorf("annotations = %+v", a)
				}
			},
		},
		{
			name:  "open world with title",
			build: func(b *ToolBuilder) *ToolBuilder { return b.OpenWorld().Title("Send WhatsApp message") },
			check: func(t *testing.T, a *ToolAnnotations) {
				if !*a.OpenWorldHint || a.Title != "Send WhatsApp message" {
					t.Errorf("annotations = %+v", a)
				}
				if a.ReadOnlyHint != nil {
					t.Error("unset hints should stay nil")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Info{Name: "test", Version: "1.0.0"})
			tt.build(srv.Tool("x")).Handler(handler)

			tools := srv.Tools()
			if len(tools) != 1 || tools[0].Annotations == nil {
				t.Fatalf("tools = %+v", tools)
			}
			tt.check(t, tools[0].Annotations)
		})
	}

	t.Run("no annotations by default", func(t *testing.T) {
		srv := New(Info{Name: "test", Version: "1.0.0"})
		srv.Tool("x").Handler(handler)
		if srv.Tools()[0].Annotations != nil {
			t.Error("expected nil annotations")
		}
	})
}
