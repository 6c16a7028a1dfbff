package model

import (
	"testing"

	"github.com/rushteam/itemcf/core"
)

func TestItemCF_Popular(t *testing.T) {
	e := NewItemCF()
	if _, err := e.Popular(3); !core.IsNotPrepared(err) {
		t.Fatalf("Popular() before Prepare error = %v, want not prepared", err)
	}

	rows := core.Interactions{
		{UserID: "u1", ItemID: "x", Rating: 1},
		{UserID: "u1", ItemID: "y", Rating: 9},
		{UserID: "u2", ItemID: "y", Rating: 2},
		{UserID: "u2", ItemID: "y", Rating: 2}, // 重复评分只算一个用户
		{UserID: "u3", ItemID: "z", Rating: 4},
		{UserID: "u3", ItemID: "x", Rating: 4},
		{UserID: "u4", ItemID: "w", Rating: 4},
	}
	if err := e.Prepare(rows); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		n    int
		want []string
	}{
		{n: 2, want: []string{"x", "y"}},
		{n: 0, want: []string{"x", "y", "z", "w"}},
		{n: 10, want: []string{"x", "y", "z", "w"}},
	}
	for _, tt := range tests {
		got, err := e.Popular(tt.n)
		if err != nil {
			t.Fatalf("Popular(%d) error = %v", tt.n, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Popular(%d) = %+v, want %v", tt.n, got, tt.want)
		}
		for i, id := range tt.want {
			if got[i].ItemID != id {
				t.Errorf("Popular(%d)[%d] = %s, want %s", tt.n, i, got[i].ItemID, id)
			}
		}
	}
	top, _ := e.Popular(1)
	if top[0].Score != 2 || top[0].Label != UnknownLabel {
		t.Errorf("Popular(1)[0] = %+v, want score 2 and unknown label", top[0])
	}
}
