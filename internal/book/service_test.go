package book

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_List_Paging(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		total        int
		wantLimit    int
		wantOffset   int
		wantPages    int
		wantPageEcho int
	}{
		{"first page defaults", 0, 0, 45, 20, 0, 3, 1},
		{"third page", 3, 20, 45, 20, 40, 3, 3},
		{"oversized page size", 1, 1000, 5, 20, 0, 1, 1},
		{"empty catalog", 1, 10, 0, 10, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := NewMockRepository(ctrl)
			repo.EXPECT().List(gomock.Any(), Query{Limit: tt.wantLimit, Offset: tt.wantOffset}).Return(nil, tt.total, nil)

			page, err := NewService(repo).List(context.Background(), Query{}, tt.page, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.wantPageEcho, page.Page)
			assert.NotNil(t, page.Books)
		})
	}
}
