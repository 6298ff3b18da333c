// Package schema describes the physical shape of the indexed tables: the
// columns MetadataService merges override data onto, and the types
// AttributeQueryEngine validates predicate operands against.
package schema

// DataType is the physical, underlying column type. Overrides may rewrite
// the user-facing label but never this value — the query engine always
// validates against it.
type DataType string

const (
	TypeInt            DataType = "Int"
	TypeString         DataType = "String"
	TypeHash           DataType = "Hash"
	TypeDecimal        DataType = "Decimal"
	TypeBoolean        DataType = "Boolean"
	TypeDateTime       DataType = "DateTime"
	TypeAccountAddress DataType = "AccountAddress"
)

// ColumnDef describes one physical column of one entity's backing table.
type ColumnDef struct {
	Name     string
	Type     DataType
	Nullable bool
	Comment  string
}

// Entity is one physical table exposed through the discovery surface,
// scoped to a platform/network pair's schema.
type Entity struct {
	Name    string // e.g. "blocks", "accounts", "transfers"
	Table   string // physical table name
	Columns []ColumnDef
}

// Network groups the entities available for one network of one platform.
type Network struct {
	Name     string
	Entities []Entity
}

// Platform groups the networks available for one chain family.
type Platform struct {
	Name     string
	Networks []Network
}

// Registry is the full physical schema: every platform this deployment
// knows how to index, regardless of override visibility.
type Registry struct {
	Platforms []Platform
}

// FindEntity looks up one entity's physical columns by path.
func (r Registry) FindEntity(platform, network, entity string) (Entity, bool) {
	for _, p := range r.Platforms {
		if p.Name != platform {
			continue
		}
		for _, n := range p.Networks {
			if n.Name != network {
				continue
			}
			for _, e := range n.Entities {
				if e.Name == entity {
					return e, true
				}
			}
		}
	}
	return Entity{}, false
}

// FindColumn looks up one column's physical type by path.
func (e Entity) FindColumn(name string) (ColumnDef, bool) {
	for _, c := range e.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Default returns the physical schema for the indexed tables this
// repository writes, grounded on the table layout in internal/store.
func Default() Registry {
	blockCols := []ColumnDef{
		{Name: "hash", Type: TypeHash},
		{Name: "level", Type: TypeInt},
		{Name: "predecessor_hash", Type: TypeHash},
		{Name: "timestamp", Type: TypeDateTime},
		{Name: "protocol", Type: TypeString},
		{Name: "baker", Type: TypeAccountAddress},
	}
	txCols := []ColumnDef{
		{Name: "tx_hash", Type: TypeHash},
		{Name: "block_level", Type: TypeInt},
		{Name: "op_index", Type: TypeInt},
		{Name: "kind", Type: TypeString},
		{Name: "source", Type: TypeAccountAddress},
		{Name: "destination", Type: TypeAccountAddress, Nullable: true},
		{Name: "fee", Type: TypeDecimal},
	}
	accountCols := []ColumnDef{
		{Name: "account_id", Type: TypeAccountAddress},
		{Name: "block_level", Type: TypeInt},
		{Name: "balance", Type: TypeDecimal},
		{Name: "delegate", Type: TypeAccountAddress, Nullable: true},
		{Name: "counter", Type: TypeInt},
	}
	transferCols := []ColumnDef{
		{Name: "tx_hash", Type: TypeHash},
		{Name: "log_index", Type: TypeInt},
		{Name: "contract", Type: TypeAccountAddress},
		{Name: "from_address", Type: TypeAccountAddress},
		{Name: "to_address", Type: TypeAccountAddress},
		{Name: "amount", Type: TypeDecimal},
		{Name: "block_level", Type: TypeInt},
	}
	rightsCols := []ColumnDef{
		{Name: "level", Type: TypeInt},
		{Name: "cycle", Type: TypeInt},
		{Name: "delegate", Type: TypeAccountAddress},
		{Name: "slot", Type: TypeInt},
		{Name: "kind", Type: TypeString},
		{Name: "estimated_time", Type: TypeDateTime, Nullable: true},
	}
	receiptCols := []ColumnDef{
		{Name: "tx_hash", Type: TypeHash},
		{Name: "block_level", Type: TypeInt},
		{Name: "status", Type: TypeString},
		{Name: "gas_used", Type: TypeInt},
	}
	logCols := []ColumnDef{
		{Name: "tx_hash", Type: TypeHash},
		{Name: "log_index", Type: TypeInt},
		{Name: "address", Type: TypeAccountAddress},
		{Name: "data", Type: TypeString, Nullable: true},
		{Name: "block_level", Type: TypeInt},
		{Name: "block_hash", Type: TypeHash},
	}
	bakerCols := []ColumnDef{
		{Name: "baker_id", Type: TypeAccountAddress},
		{Name: "block_level", Type: TypeInt},
		{Name: "staked_balance", Type: TypeDecimal},
		{Name: "delegators", Type: TypeInt},
	}
	resetEventCols := []ColumnDef{
		{Name: "protocol", Type: TypeString},
		{Name: "activation_level", Type: TypeInt},
		{Name: "kind", Type: TypeString},
		{Name: "applied_at", Type: TypeDateTime, Nullable: true},
	}
	tokenBalanceCols := []ColumnDef{
		{Name: "contract", Type: TypeAccountAddress},
		{Name: "holder", Type: TypeAccountAddress},
		{Name: "block_level", Type: TypeInt},
		{Name: "balance", Type: TypeDecimal},
	}
	tnsCols := []ColumnDef{
		{Name: "name", Type: TypeString},
		{Name: "account_id", Type: TypeAccountAddress},
		{Name: "block_level", Type: TypeInt},
	}
	feeAggregateCols := []ColumnDef{
		{Name: "op_kind", Type: TypeString},
		{Name: "computed_at", Type: TypeDateTime},
		{Name: "mean_fee", Type: TypeDecimal},
		{Name: "high_fee", Type: TypeDecimal},
		{Name: "low_fee", Type: TypeDecimal},
		{Name: "sample_size", Type: TypeInt},
	}

	network := func(name string) Network {
		return Network{Name: name, Entities: []Entity{
			{Name: "blocks", Table: "blocks", Columns: blockCols},
			{Name: "transactions", Table: "transactions", Columns: txCols},
			{Name: "receipts", Table: "receipts", Columns: receiptCols},
			{Name: "logs", Table: "logs", Columns: logCols},
			{Name: "accounts", Table: "account_snapshots", Columns: accountCols},
			{Name: "bakers", Table: "baker_snapshots", Columns: bakerCols},
			{Name: "resetEvents", Table: "reset_events", Columns: resetEventCols},
			{Name: "tokenTransfers", Table: "token_transfers", Columns: transferCols},
			{Name: "tokenBalances", Table: "token_balances", Columns: tokenBalanceCols},
			{Name: "tnsEntries", Table: "tns_entries", Columns: tnsCols},
			{Name: "rights", Table: "rights", Columns: rightsCols},
			{Name: "feeAggregates", Table: "fee_aggregates", Columns: feeAggregateCols},
		}}
	}

	return Registry{Platforms: []Platform{
		{Name: "tezos", Networks: []Network{network("mainnet"), network("ghostnet")}},
		{Name: "ethereum", Networks: []Network{network("mainnet"), network("sepolia")}},
	}}
}
