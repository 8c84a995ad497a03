package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/stretchr/testify/assert"

	"github.com/finsight/fingraph/pkg/types"
)

func TestClassifyWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.WriteErrorClass
	}{
		{
			name: "transient server error",
			err:  &db.Neo4jError{Code: "Neo.TransientError.General.DatabaseUnavailable", Msg: "unavailable"},
			want: types.WriteRetriable,
		},
		{
			name: "syntax error",
			err:  &db.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "bad cypher"},
			want: types.WriteFatal,
		},
		{
			name: "constraint violation",
			err:  &db.Neo4jError{Code: "Neo.ClientError.Schema.ConstraintValidationFailed", Msg: "duplicate"},
			want: types.WriteFatal,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:7687: connect: connection refused"),
			want: types.WriteRetriable,
		},
		{
			name: "timeout",
			err:  errors.New("read tcp: i/o timeout"),
			want: types.WriteRetriable,
		},
		{
			name: "context deadline",
			err:  context.DeadlineExceeded,
			want: types.WriteRetriable,
		},
		{
			name: "unknown error defaults fatal",
			err:  errors.New("something unexpected"),
			want: types.WriteFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyWriteError(tt.err))
		})
	}
}

func TestClassifyPingError(t *testing.T) {
	w := NewNeo4jWriter(Config{
		URI:      "bolt://localhost:7687",
		Username: "neo4j",
	}, nil)
	base := types.ConnectionStatus{Endpoint: w.cfg.URI}

	authErr := &db.Neo4jError{Code: "Neo.ClientError.Security.Unauthorized", Msg: "wrong password"}
	status := w.classifyPingError(base, authErr)
	assert.Equal(t, types.ConnectionAuthFailed, status.State)
	assert.Contains(t, status.Suggestion, "neo4j")
	assert.Contains(t, status.Suggestion, "password")

	status = w.classifyPingError(base, errors.New("dial tcp 127.0.0.1:7687: connect: connection refused"))
	assert.Equal(t, types.ConnectionUnreachable, status.State)
	assert.Contains(t, status.Suggestion, "bolt://localhost:7687")

	status = w.classifyPingError(base, errors.New("database is starting up"))
	assert.Equal(t, types.ConnectionNotReady, status.State)
}

func TestExecuteBatchEmptyInput(t *testing.T) {
	w := NewNeo4jWriter(Config{URI: "bolt://localhost:7687"}, nil)

	result, err := w.ExecuteBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, &BatchResult{}, result)
}

func TestBatchResultAdd(t *testing.T) {
	total := &BatchResult{}
	total.Add(&BatchResult{StatementsRun: 2, NodesCreated: 1, PropertiesSet: 4})
	total.Add(&BatchResult{StatementsRun: 1, RelationshipsCreated: 1})
	total.Add(nil)

	assert.Equal(t, 3, total.StatementsRun)
	assert.Equal(t, 1, total.NodesCreated)
	assert.Equal(t, 1, total.RelationshipsCreated)
	assert.Equal(t, 4, total.PropertiesSet)
}

func TestCloseWithoutConnect(t *testing.T) {
	w := NewNeo4jWriter(Config{URI: "bolt://localhost:7687"}, nil)
	assert.NoError(t, w.Close(context.Background()))
}
