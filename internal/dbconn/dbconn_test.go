package dbconn

import "testing"

func TestSchemaTableQualifiesWhenSchemaSet(t *testing.T) {
	c := &Client{Schema: "tezos_mainnet"}
	if got := c.SchemaTable("blocks"); got != "tezos_mainnet.blocks" {
		t.Errorf("SchemaTable() = %q, want tezos_mainnet.blocks", got)
	}
}

func TestSchemaTableUnqualifiedWhenSchemaEmpty(t *testing.T) {
	c := &Client{}
	if got := c.SchemaTable("blocks"); got != "blocks" {
		t.Errorf("SchemaTable() = %q, want blocks unqualified", got)
	}
}

func TestBatchQueueAndLen(t *testing.T) {
	c := &Client{}
	b := c.NewBatch()
	if b.Len() != 0 {
		t.Fatalf("new batch Len() = %d, want 0", b.Len())
	}
	b.Queue("insert into blocks (hash) values ($1)", "h1")
	b.Queue("insert into blocks (hash) values ($1)", "h2")
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after queuing two statements", b.Len())
	}
}
