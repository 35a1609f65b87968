package game

import "fmt"

// 弃票使用空字符串作为目标
const BLANK_VOTE = ""

type VoteOutcome string

const (
	OUTCOME_ELIMINATED     VoteOutcome = "Eliminated"
	OUTCOME_BLANK_MAJORITY VoteOutcome = "BlankMajority"
	OUTCOME_TIE            VoteOutcome = "Tie"
	OUTCOME_NO_VOTES       VoteOutcome = "NoVotes"
)

type Resolution struct {
	Eliminated *Player
	Outcome    VoteOutcome
	Counts     map[string]int
	Blanks     int
	Total      int
}

// VoteTally 收集每个存活玩家的一票（或弃票），在所有人投完或被强制结束时给出淘汰结果
type VoteTally struct {
	players map[string]*Player
	// key: voter_id, value: target_id 或 BLANK_VOTE
	votes map[string]string
}

func NewVoteTally(players map[string]*Player) *VoteTally {
	return &VoteTally{
		players: players,
		votes:   make(map[string]string),
	}
}

// Cast 记录一票；同一投票者重复投票时以最后一票为准
func (vt *VoteTally) Cast(voterID, targetID string) (replaced bool, err error) {
	voter, ok := vt.players[voterID]
	if !ok || !voter.Alive {
		return false, fmt.Errorf("%w: %q", ErrVoterNotEligible, voterID)
	}

	if targetID != BLANK_VOTE {
		target, ok := vt.players[targetID]
		if !ok || !target.Alive {
			return false, fmt.Errorf("%w: %q", ErrInvalidTarget, targetID)
		}
	}

	_, replaced = vt.votes[voterID]
	vt.votes[voterID] = targetID

	return replaced, nil
}

// Drop 移除某玩家投出的票以及投给他的票，被移除的投票者需要重新投票
func (vt *VoteTally) Drop(playerID string) {
	delete(vt.votes, playerID)

	for voterID, targetID := range vt.votes {
		if targetID == playerID {
			delete(vt.votes, voterID)
		}
	}
}

func (vt *VoteTally) livingCount() int {
	n := 0
	for _, p := range vt.players {
		if p.Alive {
			n++
		}
	}

	return n
}

// IsComplete 在每个存活玩家都有记录时为 true
func (vt *VoteTally) IsComplete() bool {
	living := vt.livingCount()
	if living == 0 {
		return false
	}

	for id, p := range vt.players {
		if !p.Alive {
			continue
		}

		if _, ok := vt.votes[id]; !ok {
			return false
		}
	}

	return true
}

func (vt *VoteTally) VotesCast() int {
	return len(vt.votes)
}

// Counts 返回每个目标的得票数和弃票数，得票为 0 的目标不会出现
func (vt *VoteTally) Counts() (map[string]int, int) {
	counts := make(map[string]int)
	blanks := 0

	for _, targetID := range vt.votes {
		if targetID == BLANK_VOTE {
			blanks++
			continue
		}

		counts[targetID]++
	}

	return counts, blanks
}

// Resolve 计票并清空票箱：
// 弃票严格过半则无人出局；最高票并列则无人出局；否则最高票玩家出局
func (vt *VoteTally) Resolve() (Resolution, error) {
	if vt.livingCount() == 0 {
		return Resolution{}, fmt.Errorf("%w: 没有存活玩家时无法计票", ErrInternal)
	}

	counts, blanks := vt.Counts()
	total := len(vt.votes)
	vt.votes = make(map[string]string)

	res := Resolution{
		Counts: counts,
		Blanks: blanks,
		Total:  total,
	}

	if blanks*2 > total {
		res.Outcome = OUTCOME_BLANK_MAJORITY
		return res, nil
	}

	var (
		eliminatedID string
		maxVotes     int
		tie          bool
	)

	for targetID, c := range counts {
		switch {
		case c > maxVotes:
			maxVotes = c
			eliminatedID = targetID
			tie = false
		case c == maxVotes:
			tie = true
		}
	}

	if maxVotes == 0 {
		res.Outcome = OUTCOME_NO_VOTES
		return res, nil
	}

	if tie {
		res.Outcome = OUTCOME_TIE
		return res, nil
	}

	eliminated := vt.players[eliminatedID]
	eliminated.Alive = false

	res.Eliminated = eliminated
	res.Outcome = OUTCOME_ELIMINATED

	return res, nil
}
