package model

// Stages of the trades command that can drop a log.
const (
	StageParse  = "parse"
	StageDecode = "decode"
	StageBuild  = "build"
)

// DecodeError is a log the trades command could not turn into an action.
// ActionSeq is the seq the action would have taken, so a rerun after a fix
// can be compared against the emitted stream.
type DecodeError struct {
	Stage       string `json:"stage"`
	Line        int    `json:"line,omitempty"`
	ActionSeq   uint64 `json:"action_seq,omitempty"`
	ChainID     uint64 `json:"chain_id,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	LogIndex    uint64 `json:"log_index,omitempty"`
	Pool        string `json:"pool,omitempty"`
	Error       string `json:"error"`
}

// NewDecodeError ties err to the log it came from.
func NewDecodeError(stage string, record LogRecord, seq uint64, err error) DecodeError {
	return DecodeError{
		Stage:       stage,
		ActionSeq:   seq,
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Pool:        record.Address,
		Error:       err.Error(),
	}
}
