package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/testutil"
	"github.com/GabrielNunesIT/data-logger/internal/testutil/mocks"
)

func TestElasticsearchSink_Write(t *testing.T) {
	tests := []struct {
		name         string
		factoryErr   error
		setupMock    func(*mocks.BulkIndexer, *[]map[string]any)
		wantErr      string
		wantChannels []string
	}{
		{
			name: "Success",
			setupMock: func(m *mocks.BulkIndexer, docs *[]map[string]any) {
				m.On("Add", mock.Anything, mock.MatchedBy(func(item esutil.BulkIndexerItem) bool {
					return item.Action == "index"
				})).Return(nil).Run(func(args mock.Arguments) {
					item := args.Get(1).(esutil.BulkIndexerItem)
					bodyBytes, _ := io.ReadAll(item.Body)
					var doc map[string]any
					_ = json.Unmarshal(bodyBytes, &doc)
					*docs = append(*docs, doc)
				})
				m.On("Close", mock.Anything).Return(nil)
			},
		},
		{
			name: "Rejected documents",
			setupMock: func(m *mocks.BulkIndexer, _ *[]map[string]any) {
				var pending []esutil.BulkIndexerItem
				m.On("Add", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
					pending = append(pending, args.Get(1).(esutil.BulkIndexerItem))
				})
				m.On("Close", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
					// reject the first document of the second channel
					var res esutil.BulkIndexerResponseItem
					res.Error.Type = "mapper_parsing_exception"
					res.Error.Reason = "failed to parse"
					item := pending[2]
					item.OnFailure(context.Background(), item, res, nil)
				})
			},
			wantErr:      "mapper_parsing_exception",
			wantChannels: []string{"actual"},
		},
		{
			name: "Add error",
			setupMock: func(m *mocks.BulkIndexer, _ *[]map[string]any) {
				m.On("Add", mock.Anything, mock.Anything).Return(errors.New("indexer closed"))
				m.On("Close", mock.Anything).Return(nil)
			},
			wantErr:      "indexer closed",
			wantChannels: []string{"time", "actual"},
		},
		{
			name:       "Factory Error",
			factoryErr: errors.New("factory failure"),
			wantErr:    "factory failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIndexer := mocks.NewBulkIndexer(t)
			var docs []map[string]any
			if tt.setupMock != nil {
				tt.setupMock(mockIndexer, &docs)
			}

			factory := func(c config.ElasticsearchSinkConfig) (esutil.BulkIndexer, error) {
				if tt.factoryErr != nil {
					return nil, tt.factoryErr
				}
				return mockIndexer, nil
			}

			s := NewElasticsearchSink(config.ElasticsearchSinkConfig{Index: "test-index"}, testutil.NewTestLogger(), WithIndexerFactory(factory))
			err := s.Write(context.Background(), testSnapshot())

			if tt.wantErr == "" {
				require.NoError(t, err)
				require.Len(t, docs, 4)
				assert.Equal(t, "bench", docs[0]["worker"])
				assert.Equal(t, "time", docs[0]["channel"])
				assert.Equal(t, 0.5, docs[0]["value"])
				assert.Equal(t, "actual", docs[3]["channel"])
				assert.Equal(t, float64(1), docs[3]["seq"])
				assert.Equal(t, []any{3.0, 4.25}, docs[3]["value"])
				assert.NotEmpty(t, docs[3]["@timestamp"])
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantChannels, FailedChannels(err))
		})
	}
}
