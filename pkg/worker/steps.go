package worker

// SignalStep drains toSignal entirely (§4.3 "Synchronous steps"),
// called by the Coordinator's synchronous execution protocol via a
// Request/Command.
func (w *Worker[ID, S]) SignalStep() {
	w.store.ToSignal.Foreach(func(id ID) {
		w.signalVertex(id)
	}, true)
}

// CollectStep drains toCollect entirely and reports whether toSignal is
// now empty, so the Coordinator knows whether a further signal step is
// needed (§4.3).
func (w *Worker[ID, S]) CollectStep() bool {
	w.store.ToCollect.Foreach(func(id ID, signals []S) {
		w.collectVertex(id, signals, true)
	}, true, nil)
	return w.store.ToSignal.IsEmpty()
}

// RecalculateScores re-schedules every owned vertex into both work
// queues (§4.3 "Recalculation").
func (w *Worker[ID, S]) RecalculateScores() {
	w.recalculateScores()
}

// RecalculateScoresForVertexWithId re-schedules one vertex into both
// queues.
func (w *Worker[ID, S]) RecalculateScoresForVertexWithId(id ID) {
	w.recalculateScoresForVertexWithId(id)
}
