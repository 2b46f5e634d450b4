package workspace

// PaneVisible reports whether the editor pane is shown.
func (w *Workspace) PaneVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pane
}

// SetPaneVisible shows or hides the editor pane.
func (w *Workspace) SetPaneVisible(visible bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pane = visible
	w.emit(EventPaneToggled, map[string]any{"visible": visible})
}

// TogglePane flips the editor pane and returns the new visibility.
func (w *Workspace) TogglePane() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pane = !w.pane
	w.emit(EventPaneToggled, map[string]any{"visible": w.pane})
	return w.pane
}
