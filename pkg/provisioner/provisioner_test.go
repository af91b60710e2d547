package provisioner

import "testing"

func TestIssueThenRegisterRoundTrips(t *testing.T) {
	p := NewLocal([]byte("deployment-secret"), 2)
	token, err := p.IssueToken(0)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if err := p.Register(NodeReady{NodeID: 0, Token: token}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestRegisterRejectsTokenMintedForAnotherNode(t *testing.T) {
	p := NewLocal([]byte("deployment-secret"), 2)
	token, err := p.IssueToken(0)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if err := p.Register(NodeReady{NodeID: 1, Token: token}); err == nil {
		t.Fatal("expected an error registering node 1 with a token minted for node 0")
	}
}

func TestRegisterRejectsTokenFromWrongSecret(t *testing.T) {
	spoofer := NewLocal([]byte("attacker-secret"), 2)
	token, err := spoofer.IssueToken(0)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	real := NewLocal([]byte("deployment-secret"), 2)
	if err := real.Register(NodeReady{NodeID: 0, Token: token}); err == nil {
		t.Fatal("expected an error registering a token signed with the wrong secret")
	}
}

func TestOnAllReadyFiresOnceEveryNodeRegisteredInAscendingOrder(t *testing.T) {
	p := NewLocal([]byte("deployment-secret"), 3)
	var fired []int
	p.OnAllReady(func(nodeIDs []int) { fired = append(fired, nodeIDs...) })

	for _, id := range []int{2, 0, 1} {
		token, err := p.IssueToken(id)
		if err != nil {
			t.Fatalf("IssueToken(%d) failed: %v", id, err)
		}
		if err := p.Register(NodeReady{NodeID: id, Token: token}); err != nil {
			t.Fatalf("Register(%d) failed: %v", id, err)
		}
	}

	if len(fired) != 3 || fired[0] != 0 || fired[1] != 1 || fired[2] != 2 {
		t.Fatalf("fired = %v, want [0 1 2]", fired)
	}
}

func TestOnAllReadyDoesNotFireTwice(t *testing.T) {
	p := NewLocal([]byte("deployment-secret"), 1)
	calls := 0
	p.OnAllReady(func([]int) { calls++ })

	token, _ := p.IssueToken(0)
	p.Register(NodeReady{NodeID: 0, Token: token})
	p.Register(NodeReady{NodeID: 0, Token: token})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (re-registering the same node must not re-fire)", calls)
	}
}

func TestOnAllReadyWaitsForEveryNode(t *testing.T) {
	p := NewLocal([]byte("deployment-secret"), 2)
	var fired bool
	p.OnAllReady(func([]int) { fired = true })

	token, _ := p.IssueToken(0)
	if err := p.Register(NodeReady{NodeID: 0, Token: token}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if fired {
		t.Fatal("should not fire until both nodes have registered")
	}
}
