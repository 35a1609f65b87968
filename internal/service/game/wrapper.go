package game

import "fmt"

// 请求类型
const (
	REQ_ADD_PLAYER   = "AddPlayer"
	REQ_START_GAME   = "StartGame"
	REQ_SUBMIT_WORD  = "SubmitWord"
	REQ_VOTE         = "Vote"
	REQ_CLOSE_VOTING = "CloseVoting"
	REQ_GUESS_WORD   = "GuessWord"
	REQ_SNAPSHOT     = "Snapshot"
	// 计时到期，由计时回调投递，数据为 Deadline
	REQ_TIMEOUT = "Timeout"
)

type AddPlayerRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type SubmitWordRequest struct {
	PlayerID string `json:"player_id"`
	Word     string `json:"word"`
}

type VoteRequest struct {
	VoterID  string `json:"voter_id"`
	TargetID string `json:"target_id"`
}

type GuessWordRequest struct {
	PlayerID string `json:"player_id"`
	Guess    string `json:"guess"`
}

type RequestWrapper struct {
	ReqType string `json:"request_type"`
	Data    any    `json:"data"`

	respCh chan ResponseWrapper
}

func TryUnwrapAddPlayerRequest(wrapper RequestWrapper) *AddPlayerRequest {
	if wrapper.ReqType != REQ_ADD_PLAYER {
		return nil
	}

	req, ok := wrapper.Data.(AddPlayerRequest)
	if !ok {
		return nil
	}

	return &req
}

func TryUnwrapSubmitWordRequest(wrapper RequestWrapper) *SubmitWordRequest {
	if wrapper.ReqType != REQ_SUBMIT_WORD {
		return nil
	}

	req, ok := wrapper.Data.(SubmitWordRequest)
	if !ok {
		return nil
	}

	return &req
}

func TryUnwrapVoteRequest(wrapper RequestWrapper) *VoteRequest {
	if wrapper.ReqType != REQ_VOTE {
		return nil
	}

	req, ok := wrapper.Data.(VoteRequest)
	if !ok {
		return nil
	}

	return &req
}

func TryUnwrapGuessWordRequest(wrapper RequestWrapper) *GuessWordRequest {
	if wrapper.ReqType != REQ_GUESS_WORD {
		return nil
	}

	req, ok := wrapper.Data.(GuessWordRequest)
	if !ok {
		return nil
	}

	return &req
}

func TryUnwrapTimeoutRequest(wrapper RequestWrapper) *Deadline {
	if wrapper.ReqType != REQ_TIMEOUT {
		return nil
	}

	dl, ok := wrapper.Data.(Deadline)
	if !ok {
		return nil
	}

	return &dl
}

// validateRequest 检查请求类型是否已知、携带的数据是否与类型匹配
func validateRequest(req RequestWrapper) error {
	ok := true

	switch req.ReqType {
	case REQ_ADD_PLAYER:
		ok = TryUnwrapAddPlayerRequest(req) != nil
	case REQ_SUBMIT_WORD:
		ok = TryUnwrapSubmitWordRequest(req) != nil
	case REQ_VOTE:
		ok = TryUnwrapVoteRequest(req) != nil
	case REQ_GUESS_WORD:
		ok = TryUnwrapGuessWordRequest(req) != nil
	case REQ_TIMEOUT:
		ok = TryUnwrapTimeoutRequest(req) != nil
	case REQ_START_GAME, REQ_CLOSE_VOTING, REQ_SNAPSHOT:
	default:
		ok = false
	}

	if !ok {
		return fmt.Errorf("%w: 无法处理请求 %s", ErrInvalidInput, req.ReqType)
	}

	return nil
}

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data"`
	Err      error  `json:"-"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(respType string, err error) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Err:      err,
	}
}
