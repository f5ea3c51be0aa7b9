package vdom

// On binds handler to the named event.
func On(event string, handler any) Attribute {
	return Attribute{Name: event, Values: []AttrValue{ListenerValue(&Listener{Event: event, Handler: handler})}}
}

// Mouse events

// OnClick handles click events.
func OnClick(handler any) Attribute { return On("click", handler) }

// OnDblClick handles double-click events.
func OnDblClick(handler any) Attribute { return On("dblclick", handler) }

// OnMouseDown handles mousedown events.
func OnMouseDown(handler any) Attribute { return On("mousedown", handler) }

// OnMouseUp handles mouseup events.
func OnMouseUp(handler any) Attribute { return On("mouseup", handler) }

// OnMouseEnter handles mouseenter events.
func OnMouseEnter(handler any) Attribute { return On("mouseenter", handler) }

// OnMouseLeave handles mouseleave events.
func OnMouseLeave(handler any) Attribute { return On("mouseleave", handler) }

// Keyboard events

// OnKeyDown handles keydown events.
func OnKeyDown(handler any) Attribute { return On("keydown", handler) }

// OnKeyUp handles keyup events.
func OnKeyUp(handler any) Attribute { return On("keyup", handler) }

// Form events

// OnInput handles input events (fired when value changes).
func OnInput(handler any) Attribute { return On("input", handler) }

// OnChange handles change events (fired when value is committed).
func OnChange(handler any) Attribute { return On("change", handler) }

// OnSubmit handles form submit events.
func OnSubmit(handler any) Attribute { return On("submit", handler) }

// OnFocus handles focus events.
func OnFocus(handler any) Attribute { return On("focus", handler) }

// OnBlur handles blur events.
func OnBlur(handler any) Attribute { return On("blur", handler) }

// Drag events

// OnDragStart handles dragstart events.
func OnDragStart(handler any) Attribute { return On("dragstart", handler) }

// OnDrop handles drop events.
func OnDrop(handler any) Attribute { return On("drop", handler) }

// Touch events

// OnTouchStart handles touchstart events.
func OnTouchStart(handler any) Attribute { return On("touchstart", handler) }

// OnTouchEnd handles touchend events.
func OnTouchEnd(handler any) Attribute { return On("touchend", handler) }

// Other events

// OnScroll handles scroll events.
func OnScroll(handler any) Attribute { return On("scroll", handler) }
