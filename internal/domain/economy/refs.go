package economy

// Ledger reference keys. An entry with a ref key is written at most once, so
// retried settlements and genesis grants are no-ops.

// GenesisRef keys the one-time starting credit for an account.
func GenesisRef(account string) string {
	return "genesis:" + account
}

// AwardRef keys the approval payout for a job.
func AwardRef(jobID string) string {
	return "settle:" + jobID + ":award"
}

// PenaltyRef keys the rejection penalty for a job.
func PenaltyRef(jobID string) string {
	return "settle:" + jobID + ":penalty"
}

// DualAwardRef keys the proposer/executor bonus paid to one account for a job.
func DualAwardRef(jobID, account string) string {
	return "settle:" + jobID + ":dual:" + account
}

// DualAwardAmount is credited to both creator and executor when both are agents.
const DualAwardAmount = 1.0
