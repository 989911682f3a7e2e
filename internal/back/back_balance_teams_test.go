package back // nolint:testpackage

import (
	"errors"
	"testing"
	"time"
)

func newTestBack(excluded []ExclusionPair) *Back {
	return &Back{
		cache:           newDisplayCache(displayCacheTTL),
		proposals:       map[string]TeamAssignment{},
		balanceAttempts: 200,
		excludedPairs:   excluded,
	}
}

func evenPool(names ...string) []Candidate {
	pool := make([]Candidate, 0, len(names))
	for _, name := range names {
		pool = append(pool, Candidate{Name: name, Weight: 10})
	}

	return pool
}

func teamOf(t *testing.T, assignment TeamAssignment, name string) int {
	t.Helper()

	for i, team := range assignment.Teams {
		for _, m := range team.Members {
			if m.Name == name {
				return i
			}
		}
	}

	t.Fatalf("player %s is missing from the assignment", name)
	return -1
}

func TestGenerateTeamsEvenPool(t *testing.T) {
	b := newTestBack(nil)

	assignment, err := b.GenerateTeams(evenPool("Alice", "Bob", "Cara", "Dan"), testDate(), 2, 0)
	if err != nil {
		t.Fatalf("GenerateTeams: %s", err)
	}

	if len(assignment.Teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(assignment.Teams))
	}
	for _, team := range assignment.Teams {
		if len(team.Members) != 2 {
			t.Errorf("team %s has %d members, expected 2", team.Name, len(team.Members))
		}
		if team.Sum != 20 {
			t.Errorf("team %s sum = %f, expected 20", team.Name, team.Sum)
		}
	}
	if gap := assignment.Gap(); gap != 0 {
		t.Errorf("gap = %f, expected 0", gap)
	}
}

func TestGenerateTeamsRespectsExclusions(t *testing.T) {
	b := newTestBack([]ExclusionPair{{"Alice", "Bob"}})
	pool := evenPool("Alice", "Bob", "Cara", "Dan", "Eve", "Frank")

	// The search is randomized, exercise it a few times.
	for repeat := 0; repeat < 50; repeat++ {
		assignment, err := b.GenerateTeams(pool, testDate(), 2, 100)
		if err != nil {
			t.Fatalf("GenerateTeams: %s", err)
		}

		if teamOf(t, assignment, "Alice") == teamOf(t, assignment, "Bob") {
			t.Fatal("Alice and Bob ended up on the same team")
		}
	}
}

func TestGenerateTeamsInfeasible(t *testing.T) {
	// Three pairwise-excluded players cannot be spread over two teams of
	// two, some team must hold two of them.
	b := newTestBack([]ExclusionPair{
		{"Alice", "Bob"},
		{"Alice", "Cara"},
		{"Bob", "Cara"},
	})

	_, err := b.GenerateTeams(evenPool("Alice", "Bob", "Cara", "Dan"), testDate(), 2, 100)

	var infeasible ErrBalancingInfeasible
	if !errors.As(err, &infeasible) {
		t.Fatalf("expected ErrBalancingInfeasible, got %v", err)
	}
	if infeasible.Attempts != b.balanceAttempts {
		t.Errorf("reported %d attempts, expected %d", infeasible.Attempts, b.balanceAttempts)
	}
	if infeasible.BestViolations == 0 {
		t.Error("an infeasible pool must report at least one violation")
	}
	if infeasible.Best == nil {
		t.Error("the least-bad attempt must be reported for the caller to inspect")
	}
}

func TestGenerateTeamsRemainder(t *testing.T) {
	b := newTestBack(nil)

	assignment, err := b.GenerateTeams(evenPool("Alice", "Bob", "Cara", "Dan", "Eve"), testDate(), 2, 100)
	if err != nil {
		t.Fatalf("GenerateTeams: %s", err)
	}

	var total int
	for _, team := range assignment.Teams {
		if len(team.Members) == 0 {
			t.Error("a team came out empty")
		}
		total += len(team.Members)
	}
	if total != 5 {
		t.Errorf("%d players assigned, expected 5", total)
	}
}

func TestGenerateTeamsValidation(t *testing.T) {
	b := newTestBack(nil)

	if _, err := b.GenerateTeams(evenPool("Alice", "Bob"), testDate(), 1, 0); err == nil {
		t.Error("a single team is not a partition")
	}
	if _, err := b.GenerateTeams(evenPool("Alice"), testDate(), 2, 0); err == nil {
		t.Error("fewer players than teams cannot work")
	}
}

func TestProposalLifecycle(t *testing.T) {
	b := newTestBack(nil)

	assignment, err := b.GenerateTeams(evenPool("Alice", "Bob", "Cara", "Dan"), testDate(), 2, 100)
	if err != nil {
		t.Fatalf("GenerateTeams: %s", err)
	}

	if _, ok := b.takeProposal(assignment.ID); !ok {
		t.Fatal("a fresh assignment must be held as a proposal")
	}
	if _, ok := b.takeProposal(assignment.ID); ok {
		t.Fatal("a proposal can only be taken once")
	}
}

func TestSweepStaleProposals(t *testing.T) {
	b := newTestBack(nil)

	assignment, err := b.GenerateTeams(evenPool("Alice", "Bob", "Cara", "Dan"), testDate(), 2, 100)
	if err != nil {
		t.Fatalf("GenerateTeams: %s", err)
	}

	b.sweepStaleProposals(time.Now())
	if _, ok := b.proposals[assignment.ID.String()]; !ok {
		t.Fatal("a fresh proposal must survive the sweep")
	}

	b.sweepStaleProposals(time.Now().Add(proposalTTL + time.Minute))
	if _, ok := b.proposals[assignment.ID.String()]; ok {
		t.Fatal("an expired proposal must be swept")
	}
}

func TestFallbackTeamAvoidsExclusions(t *testing.T) {
	excluded := []ExclusionPair{{"Alice", "Bob"}}
	teams := []Team{
		{Members: []Candidate{{Name: "Alice"}}},
		{Members: []Candidate{{Name: "Cara"}, {Name: "Dan"}}},
	}

	if i := fallbackTeam(teams, Candidate{Name: "Bob"}, excluded); i != 1 {
		t.Errorf("Bob fell back to team %d, expected the larger but non-violating team 1", i)
	}
	if i := fallbackTeam(teams, Candidate{Name: "Eve"}, excluded); i != 0 {
		t.Errorf("Eve fell back to team %d, expected the least populated team 0", i)
	}

	// Every team violating still yields a placement, verification rejects
	// the attempt afterwards.
	pairwise := []ExclusionPair{{"Alice", "Frank"}, {"Cara", "Frank"}}
	if i := fallbackTeam(teams, Candidate{Name: "Frank"}, pairwise); i != 0 {
		t.Errorf("Frank fell back to team %d, expected the least populated team 0", i)
	}
}

func TestViolatesExclusion(t *testing.T) {
	excluded := []ExclusionPair{{"Alice", "Bob"}}

	if violatesExclusion([]Candidate{{Name: "Alice"}, {Name: "Cara"}}, excluded) {
		t.Error("no excluded pair present, no violation")
	}
	if !violatesExclusion([]Candidate{{Name: "Bob"}, {Name: "Alice"}}, excluded) {
		t.Error("pair order must not matter")
	}
}
