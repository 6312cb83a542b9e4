package engine

// Surface is the host platform's rich-text editing surface. The engine
// treats its serialized output as an opaque blob and only ever reads the
// plain-text projection for lengths and caret math.
type Surface interface {
	// Content returns the serialized rich-text blob.
	Content() string
	// SetContent replaces the whole surface content.
	SetContent(content string)
	// PlainText is the plain-text projection of the current content.
	PlainText() string
	// CaretOffset is the caret position as a plain-text character offset.
	CaretOffset() int
	// SetCaretOffset moves the caret. An offset the surface's internal
	// structure cannot represent returns an error; callers abandon the
	// restoration rather than corrupting the selection.
	SetCaretOffset(offset int) error
}
