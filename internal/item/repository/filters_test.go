package repository

import (
	"strings"
	"testing"

	"github.com/reliefhub/stock-service/internal/item/dto"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildItemWhere(t *testing.T) {
	active := true
	where, args := buildItemWhere(&dto.ItemFilters{Category: "water", IsActive: &active, SearchQuery: "jug"})

	for _, frag := range []string{"category = :category", "is_active = :is_active", "name ILIKE :search"} {
		if !strings.Contains(where, frag) {
			t.Errorf("where clause %q missing %q", where, frag)
		}
	}
	if args["search"] != "%jug%" {
		t.Errorf("search arg = %v", args["search"])
	}

	if where, _ := buildItemWhere(&dto.ItemFilters{}); where != "" {
		t.Errorf("empty filters produced %q", where)
	}
}

func TestItemFilter_EscapesSearch(t *testing.T) {
	f := itemFilter(&dto.ItemFilters{SearchQuery: "a.b*"})
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 3 {
		t.Fatalf("$or = %#v", f["$or"])
	}
	name := or[0].(bson.M)["name"].(bson.M)
	if name["$regex"] != `a\.b\*` {
		t.Errorf("regex = %v", name["$regex"])
	}
}

func TestOffset(t *testing.T) {
	if got := offset(0, 20); got != 0 {
		t.Errorf("offset(0,20) = %d", got)
	}
	if got := offset(3, 20); got != 40 {
		t.Errorf("offset(3,20) = %d", got)
	}
}
