package server

// ToolAnnotations are behaviour hints clients may use to decide whether a
// call needs confirmation.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    *bool  `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool  `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool  `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool  `json:"openWorldHint,omitempty"`
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

func (b *ToolBuilder) annotate(fn func(a *ToolAnnotations)) *ToolBuilder {
	if b.tool.annotations == nil {
		b.tool.annotations = &ToolAnnotations{}
	}
	fn(b.tool.annotations)
	return b
}

// Title sets a human-readable title.
func (b *ToolBuilder) Title(title string) *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) { a.Title = title })
}

// ReadOnly marks the tool as free of side effects.
func (b *ToolBuilder) ReadOnly() *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) {
		a.ReadOnlyHint = Bool(true)
		a.DestructiveHint = Bool(false)
	})
}

// Destructive marks the tool as able to delete or overwrite data.
func (b *ToolBuilder) Destructive() *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) {
		a.ReadOnlyHint = Bool(false)
		a.DestructiveHint = Bool(true)
	})
}

// Idempotent marks repeated identical calls as having no further effect.
func (b *ToolBuilder) Idempotent() *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) { a.IdempotentHint = Bool(true) })
}

// OpenWorld marks the tool as reaching systems outside the server.
func (b *ToolBuilder) OpenWorld() *ToolBuilder {
	return b.annotate(func(a *ToolAnnotations) { a.OpenWorldHint = Bool(true) })
}
