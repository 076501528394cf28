package ethtypes

import "math/big"

// Block is the raw wire shape of an eth_getBlockByNumber result.
type Block struct {
	Number        string   `json:"number"`
	Hash          string   `json:"hash"`
	ParentHash    string   `json:"parentHash"`
	Timestamp     string   `json:"timestamp"`
	GasUsed       string   `json:"gasUsed"`
	GasLimit      string   `json:"gasLimit"`
	BaseFeePerGas string   `json:"baseFeePerGas,omitempty"`
	Miner         string   `json:"miner,omitempty"`
	Transactions  []string `json:"transactions"`
}

// ParsedBlock holds Block's fields as native Go types.
type ParsedBlock struct {
	Number        uint64
	Hash          string
	ParentHash    string
	Timestamp     uint64
	GasUsed       uint64
	GasLimit      uint64
	BaseFeePerGas *big.Int
	Miner         string
	TxCount       int
}

// Parsed converts the raw hex fields of b into native Go types.
func (b *Block) Parsed() ParsedBlock {
	num, _ := ParseHexUint64(b.Number)
	ts, _ := ParseHexUint64(b.Timestamp)
	gasUsed, _ := ParseHexUint64(b.GasUsed)
	gasLimit, _ := ParseHexUint64(b.GasLimit)
	return ParsedBlock{
		Number:        num,
		Hash:          b.Hash,
		ParentHash:    b.ParentHash,
		Timestamp:     ts,
		GasUsed:       gasUsed,
		GasLimit:      gasLimit,
		BaseFeePerGas: ParseHexBigInt(b.BaseFeePerGas),
		Miner:         b.Miner,
		TxCount:       len(b.Transactions),
	}
}

// Log is one eth_getLogs result entry.
type Log struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	BlockHash        string   `json:"blockHash"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

// GetLogsParams is the object get_logs takes; the gateway serializes it
// as the sole element of a one-element params array.
type GetLogsParams struct {
	FromBlock *BlockTag
	ToBlock   *BlockTag
	Addresses []string
	Topics    []string
}

// wireGetLogsParams is GetLogsParams' on-the-wire shape.
type wireGetLogsParams struct {
	FromBlock string      `json:"fromBlock,omitempty"`
	ToBlock   string      `json:"toBlock,omitempty"`
	Address   interface{} `json:"address,omitempty"`
	Topics    []string    `json:"topics,omitempty"`
}

// Wire renders p into the object eth_getLogs expects.
func (p GetLogsParams) Wire() interface{} {
	w := wireGetLogsParams{Topics: p.Topics}
	if p.FromBlock != nil {
		w.FromBlock = p.FromBlock.Param().(string)
	}
	if p.ToBlock != nil {
		w.ToBlock = p.ToBlock.Param().(string)
	}
	switch len(p.Addresses) {
	case 0:
	case 1:
		w.Address = p.Addresses[0]
	default:
		w.Address = p.Addresses
	}
	return w
}

// Receipt is an eth_getTransactionReceipt result; absent on the wire
// (result: null) when the transaction is not yet mined.
type Receipt struct {
	TransactionHash   string `json:"transactionHash"`
	BlockHash         string `json:"blockHash"`
	BlockNumber       string `json:"blockNumber"`
	From              string `json:"from"`
	To                string `json:"to,omitempty"`
	ContractAddress   string `json:"contractAddress,omitempty"`
	Status            string `json:"status"`
	GasUsed           string `json:"gasUsed"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
	Logs              []Log  `json:"logs"`
}

// FeeHistory is the eth_feeHistory result.
type FeeHistory struct {
	OldestBlock   string     `json:"oldestBlock"`
	BaseFeePerGas []string   `json:"baseFeePerGas"`
	GasUsedRatio  []float64  `json:"gasUsedRatio"`
	Reward        [][]string `json:"reward,omitempty"`
}

// FeeHistoryParams is the object fee_history takes.
type FeeHistoryParams struct {
	BlockCount        uint64
	NewestBlock       BlockTag
	RewardPercentiles []float64
}

// Wire renders p as the positional array eth_feeHistory expects:
// [blockCount, newestBlock, rewardPercentiles].
func (p FeeHistoryParams) Wire() []interface{} {
	percentiles := p.RewardPercentiles
	if percentiles == nil {
		percentiles = []float64{}
	}
	return []interface{}{Uint64ToHex(p.BlockCount), p.NewestBlock.Param(), percentiles}
}

// GetTransactionCountParams is the object get_transaction_count takes.
type GetTransactionCountParams struct {
	Address string
	Block   BlockTag
}

// SendRawTxOutcome is the canonicalizer's closed outcome set for
// send_raw_transaction, decoded from the SendRawTransaction transform
// output.
type SendRawTxOutcome struct {
	Outcome string `json:"outcome"`
	Hash    string `json:"hash,omitempty"`
	Message string `json:"message,omitempty"`
}

// CallParams is the object eth_call takes.
type CallParams struct {
	To    string
	From  string
	Data  string
	Value string
	Block *BlockTag
}

// wireCallObject is the transaction-call object eth_call's first
// positional parameter expects.
type wireCallObject struct {
	To    string `json:"to,omitempty"`
	From  string `json:"from,omitempty"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
}

// Wire renders p as the positional array eth_call expects:
// [callObject, block].
func (p CallParams) Wire() []interface{} {
	block := Latest().Param()
	if p.Block != nil {
		block = p.Block.Param()
	}
	return []interface{}{
		wireCallObject{To: p.To, From: p.From, Data: p.Data, Value: p.Value},
		block,
	}
}
