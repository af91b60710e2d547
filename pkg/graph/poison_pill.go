package graph

// PoisonPill is the control message of §5/§9 that causes a worker to run
// vertexStore.CleanUp and exit its mailbox loop. There is no per-vertex
// cancellation — PoisonPill always tears down the whole shard.
type PoisonPill struct{}
