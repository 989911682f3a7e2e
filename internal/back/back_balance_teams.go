package back

import (
	"log"
	"math"
	"math/rand"
	"time"

	"volleyladder/internal/util"

	"github.com/jmoiron/sqlx"
)

// proposalTTL is how long a generated TeamAssignment waits for a
// confirmation before the periodic sweep drops it.
const proposalTTL = 1 * time.Hour

// A Candidate is a player considered for team generation, its weight is
// the matching rating (rating / 100 for stored players).
type Candidate struct {
	Name   string
	Weight float64
}

// An ExclusionPair names two players who must never share a team.
type ExclusionPair [2]string

type Team struct {
	Name    string
	Members []Candidate
	Sum     float64
}

func (t Team) AverageWeight() float64 {
	if len(t.Members) == 0 {
		return 0
	}

	return t.Sum / float64(len(t.Members))
}

// A TeamAssignment is an ephemeral partition of the candidate pool. It
// lives in memory until confirmed into rosters or discarded, it is not a
// store record.
type TeamAssignment struct {
	ID            util.UUIDAsBlob
	CreatedAt     util.TimeAsTimestamp
	Date          util.TimeAsDate
	MaxDifference float64
	Teams         []Team
}

// Gap is the spread between the best and worst team average weights.
func (a TeamAssignment) Gap() float64 {
	return averageGap(a.Teams)
}

func averageGap(teams []Team) float64 {
	if len(teams) == 0 {
		return 0
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, t := range teams {
		avg := t.AverageWeight()
		min = math.Min(min, avg)
		max = math.Max(max, avg)
	}

	return max - min
}

func violatesExclusion(members []Candidate, excluded []ExclusionPair) bool {
	names := make(map[string]struct{}, len(members))
	for _, m := range members {
		names[m.Name] = struct{}{}
	}

	for _, pair := range excluded {
		if _, ok := names[pair[0]]; !ok {
			continue
		}
		if _, ok := names[pair[1]]; ok {
			return true
		}
	}

	return false
}

func countViolations(teams []Team, excluded []ExclusionPair) int {
	var ret int
	for _, t := range teams {
		if violatesExclusion(t.Members, excluded) {
			ret++
		}
	}

	return ret
}

// GenerateTeams partitions the pool into numTeams teams whose average
// weights stay within maxDifference of each other while keeping excluded
// pairs apart. It is a Monte-Carlo search: shuffle, place greedily, verify,
// restart. The restart count is bounded, when nothing within the bound
// satisfies both constraints the least-bad attempt is reported inside
// ErrBalancingInfeasible instead of looping forever.
func (b *Back) GenerateTeams(
	pool []Candidate,
	date time.Time,
	numTeams int,
	maxDifference float64,
) (TeamAssignment, error) {
	if numTeams < 2 {
		return TeamAssignment{}, util.ErrPublic("the minimum number of teams is 2")
	}
	if len(pool) < numTeams {
		return TeamAssignment{}, util.ErrPublic("not enough players to fill every team")
	}

	var (
		best           []Team
		bestGap        = math.Inf(1)
		bestViolations = math.MaxInt
	)

	for attempt := 0; attempt < b.balanceAttempts; attempt++ {
		teams := balanceAttempt(pool, numTeams, maxDifference, b.excludedPairs)

		gap := averageGap(teams)
		violations := countViolations(teams, b.excludedPairs)

		if violations == 0 && gap <= maxDifference && allNonEmpty(teams) {
			assignment := b.holdProposal(date, maxDifference, teams)
			log.Printf("debug: balanced %d players into %d teams in %d attempts (gap %.2f)",
				len(pool), numTeams, attempt+1, gap)
			return assignment, nil
		}

		if violations < bestViolations || (violations == bestViolations && gap < bestGap) {
			best, bestGap, bestViolations = teams, gap, violations
		}
	}

	bestAssignment := newTeamAssignment(date, maxDifference, best)

	return TeamAssignment{}, ErrBalancingInfeasible{
		Attempts:       b.balanceAttempts,
		BestGap:        bestGap,
		BestViolations: bestViolations,
		Best:           &bestAssignment,
	}
}

// balanceAttempt runs one greedy pass: each player goes to the team where
// the resulting sum gap is smallest among the teams still under capacity
// and not violating an exclusion. Ties prefer the smaller team so sizes
// stay even, and a player nobody wants lands on the least populated team
// (the final verification catches whatever that breaks).
func balanceAttempt(pool []Candidate, numTeams int, maxDifference float64, excluded []ExclusionPair) []Team {
	players := make([]Candidate, len(pool))
	copy(players, pool)
	rand.Shuffle(len(players), func(i, j int) { // nolint:gosec
		players[i], players[j] = players[j], players[i]
	})

	maxPerTeam := len(players) / numTeams
	teams := make([]Team, numTeams)

	for _, p := range players {
		bestTeam := -1
		minGap := math.Inf(1)

		for i := range teams {
			if len(teams[i].Members) >= maxPerTeam {
				continue
			}

			teams[i].Members = append(teams[i].Members, p)
			ok := !violatesExclusion(teams[i].Members, excluded)
			teams[i].Members = teams[i].Members[:len(teams[i].Members)-1]
			if !ok {
				continue
			}

			gap := sumGapWith(teams, i, p.Weight)
			if gap > maxDifference {
				continue
			}

			if gap < minGap ||
				(gap == minGap && bestTeam >= 0 && len(teams[i].Members) < len(teams[bestTeam].Members)) {
				minGap = gap
				bestTeam = i
			}
		}

		if bestTeam == -1 {
			bestTeam = fallbackTeam(teams, p, excluded)
		}

		teams[bestTeam].Members = append(teams[bestTeam].Members, p)
		teams[bestTeam].Sum += p.Weight
	}

	return teams
}

// sumGapWith computes the max-min spread of team sums as if weight were
// added to team i.
func sumGapWith(teams []Team, i int, weight float64) float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for k := range teams {
		sum := teams[k].Sum
		if k == i {
			sum += weight
		}
		min = math.Min(min, sum)
		max = math.Max(max, sum)
	}

	return max - min
}

func allNonEmpty(teams []Team) bool {
	for i := range teams {
		if len(teams[i].Members) == 0 {
			return false
		}
	}

	return true
}

// fallbackTeam places a player nobody wants on the least populated team
// that does not pair them with an excluded partner, ignoring capacity and
// tolerance. When every team violates, the least populated one takes the
// hit and the final verification rejects the attempt.
func fallbackTeam(teams []Team, p Candidate, excluded []ExclusionPair) int {
	ret := -1
	for i := range teams {
		teams[i].Members = append(teams[i].Members, p)
		ok := !violatesExclusion(teams[i].Members, excluded)
		teams[i].Members = teams[i].Members[:len(teams[i].Members)-1]
		if !ok {
			continue
		}

		if ret == -1 || len(teams[i].Members) < len(teams[ret].Members) {
			ret = i
		}
	}

	if ret == -1 {
		return leastPopulated(teams)
	}

	return ret
}

func leastPopulated(teams []Team) int {
	ret := 0
	for i := range teams {
		if len(teams[i].Members) < len(teams[ret].Members) {
			ret = i
		}
	}

	return ret
}

// teamWords replaces the whims of the faker library the old bot named its
// teams with.
var teamWords = []string{ // nolint:gochecknoglobals
	"falcon", "breeze", "thunder", "granite", "ember", "willow",
	"harbor", "comet", "aurora", "summit", "drift", "tempest",
	"lagoon", "meadow", "onyx", "quartz", "raven", "sierra",
	"tundra", "vortex", "zephyr", "cobalt", "marble", "juniper",
}

func newTeamAssignment(date time.Time, maxDifference float64, teams []Team) TeamAssignment {
	named := make([]Team, len(teams))
	copy(named, teams)

	offset := randomIndex(len(teamWords))
	for i := range named {
		named[i].Name = teamWords[(offset+i)%len(teamWords)]
	}

	return TeamAssignment{
		ID:            util.NewUUIDAsBlob(),
		CreatedAt:     util.TimeAsTimestamp(time.Now()),
		Date:          util.NewTimeAsDate(date),
		MaxDifference: maxDifference,
		Teams:         named,
	}
}

func (b *Back) holdProposal(date time.Time, maxDifference float64, teams []Team) TeamAssignment {
	assignment := newTeamAssignment(date, maxDifference, teams)

	b.proposalsMx.Lock()
	b.proposals[assignment.ID.String()] = assignment
	b.proposalsMx.Unlock()

	return assignment
}

func (b *Back) takeProposal(id util.UUIDAsBlob) (TeamAssignment, bool) {
	b.proposalsMx.Lock()
	defer b.proposalsMx.Unlock()

	assignment, ok := b.proposals[id.String()]
	if ok {
		delete(b.proposals, id.String())
	}

	return assignment, ok
}

// ConfirmTeams persists a held assignment as the rosters-of-the-day, one
// per team, replacing any roster already confirmed for the same team name.
func (b *Back) ConfirmTeams(id util.UUIDAsBlob) error {
	assignment, ok := b.takeProposal(id)
	if !ok {
		return util.ErrPublic("these teams expired or were already handled, generate them again")
	}

	return b.transaction(func(tx *sqlx.Tx) error {
		for _, team := range assignment.Teams {
			names := make([]string, 0, len(team.Members))
			for _, m := range team.Members {
				if _, err := getOrCreatePlayerByName(tx, m.Name); err != nil {
					return err
				}
				names = append(names, m.Name)
			}

			roster := NewRoster(assignment.Date.Time(), team.Name, names)
			if err := roster.upsert(tx); err != nil {
				return err
			}
		}

		return nil
	})
}

// DiscardTeams drops a held assignment, regenerating is the usual caller
// reaction.
func (b *Back) DiscardTeams(id util.UUIDAsBlob) {
	if _, ok := b.takeProposal(id); !ok {
		log.Printf("debug: discard of unknown team assignment %s", id)
	}
}

func (b *Back) sweepStaleProposals(now time.Time) {
	b.proposalsMx.Lock()
	defer b.proposalsMx.Unlock()

	for key, assignment := range b.proposals {
		if now.Sub(assignment.CreatedAt.Time()) > proposalTTL {
			log.Printf("debug: sweeping stale team assignment %s", key)
			delete(b.proposals, key)
		}
	}
}

// BuildCandidatePool derives matching weights from the current ratings,
// rating/100 as the day poll does it. Unknown names weigh in at the
// initial rating, the pool is where new players first show up.
func (b *Back) BuildCandidatePool(names []string) ([]Candidate, error) {
	var state ratingState
	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		state, err = getLatestRatingState(tx)
		return err
	}); err != nil {
		return nil, err
	}

	ratings := state.ratings()
	pool := make([]Candidate, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}

		rating, ok := ratings[name]
		if !ok {
			rating = InitialRating
		}

		pool = append(pool, Candidate{
			Name:   name,
			Weight: float64(rating) / 100.0,
		})
	}

	return pool, nil
}
