package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Home & Kitchen":   "home-kitchen",
		"  Smart   TVs ":   "smart-tvs",
		"Léon's Furniture": "l-on-s-furniture",
		"---":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestProduct_RecomputeRating(t *testing.T) {
	p := &Product{Reviews: []Review{{Rating: 5}, {Rating: 4}, {Rating: 3}}}
	p.RecomputeRating()
	assert.Equal(t, 4.0, p.Rating)
	assert.Equal(t, 3, p.NumReviews)

	p.Reviews = nil
	p.RecomputeRating()
	assert.Zero(t, p.Rating)
}

func TestOrder_SellerHelpers(t *testing.T) {
	s1, s2 := primitive.NewObjectID(), primitive.NewObjectID()
	o := &Order{OrderItems: []OrderItem{
		{Seller: s1, Price: 10, Quantity: 2, Status: ItemShipped},
		{Seller: s2, Price: 5, Quantity: 1, Status: ItemPending},
		{Seller: s1, Price: 1, Quantity: 1, Status: ItemDelivered},
	}}

	assert.Equal(t, []primitive.ObjectID{s1, s2}, o.SellerIDs())
	assert.Len(t, o.ScopedToSeller(s1).OrderItems, 2)
	assert.Len(t, o.OrderItems, 3, "scoping must not mutate the original")
	assert.Equal(t, 26.0, o.ItemsTotal())
	assert.False(t, o.AllItemsShipped())

	o.OrderItems[1].Status = ItemShipped
	assert.True(t, o.AllItemsShipped())
}

func TestNewMetaData(t *testing.T) {
	m := NewMetaData(Page{Page: 2, Limit: 10}, 25)
	assert.Equal(t, int64(3), m.TotalPages)
	assert.True(t, m.HasMore)

	m = NewMetaData(Page{Page: 3, Limit: 10}, 25)
	assert.False(t, m.HasMore)
	assert.Equal(t, int64(20), Page{Page: 3, Limit: 10}.Skip())
}

func TestDecodeSectionContent_Variants(t *testing.T) {
	banner, err := DecodeSectionContent(SectionBanner, map[string]interface{}{
		"slides": []interface{}{
			map[string]interface{}{"image": "https://cdn.example.com/a.jpg", "title": "Sale"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sale", banner.(BannerContent).Slides[0].Title)

	products, err := DecodeSectionContent(SectionProducts, map[string]interface{}{
		"query": "best-sellers",
		"limit": "4",
	})
	require.NoError(t, err)
	pc := products.(ProductsContent)
	assert.Equal(t, QueryBestSellers, pc.EffectiveQuery())
	assert.Equal(t, 4, pc.EffectiveLimit())

	custom, err := DecodeSectionContent(SectionCustom, nil)
	require.NoError(t, err)
	assert.Equal(t, SectionCustom, custom.SectionType())
}

func TestDecodeSectionContent_Rejects(t *testing.T) {
	_, err := DecodeSectionContent(SectionBanner, map[string]interface{}{"slides": []interface{}{}})
	assert.Error(t, err, "banner needs at least one slide")

	_, err = DecodeSectionContent(SectionProducts, map[string]interface{}{"query": "cheapest"})
	assert.Error(t, err)

	_, err = DecodeSectionContent(SectionIconCategories, map[string]interface{}{
		"items":  []interface{}{map[string]interface{}{"name": "Phones", "icon": "phone"}},
		"colour": "red",
	})
	assert.Error(t, err, "unknown keys are not accepted")

	_, err = DecodeSectionContent("carousel", map[string]interface{}{})
	assert.Error(t, err)
}

func TestProductsContent_Defaults(t *testing.T) {
	c := ProductsContent{}
	assert.Equal(t, QueryFeatured, c.EffectiveQuery())
	assert.Equal(t, MaxSectionProducts, c.EffectiveLimit())
	c.Limit = 50
	assert.Equal(t, MaxSectionProducts, c.EffectiveLimit())
}

func TestHomePageSection_BSONRoundTrip(t *testing.T) {
	in := HomePageSection{
		ID:    primitive.NewObjectID(),
		Title: "Top picks",
		Type:  SectionProducts,
		Content: ProductsContent{
			Products: []string{primitive.NewObjectID().Hex()},
			Query:    QueryNewArrivals,
		},
		Order:     3,
		Active:    true,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	data, err := bson.Marshal(in)
	require.NoError(t, err)

	assert.Equal(t, "products", bson.Raw(data).Lookup("type").StringValue())
	assert.Equal(t, "new-arrivals", bson.Raw(data).Lookup("content", "query").StringValue())

	var out HomePageSection
	require.NoError(t, bson.Unmarshal(data, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Content, out.Content)
	assert.Equal(t, 3, out.Order)
}

func TestResolvedSection_JSONRoundTrip(t *testing.T) {
	in := []*ResolvedSection{{
		HomePageSection: HomePageSection{
			ID:      primitive.NewObjectID(),
			Title:   "Hero",
			Type:    SectionBanner,
			Content: BannerContent{Slides: []BannerSlide{{Image: "https://cdn.example.com/a.jpg"}}},
			Active:  true,
		},
	}, {
		HomePageSection: HomePageSection{
			ID:      primitive.NewObjectID(),
			Title:   "Best sellers",
			Type:    SectionProducts,
			Content: ProductsContent{Query: QueryBestSellers},
		},
		Products: []*Product{{ID: primitive.NewObjectID(), Title: "Lamp", SalesCount: 9}},
	}}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out []*ResolvedSection
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Content, out[0].Content)
	assert.Equal(t, QueryBestSellers, out[1].Content.(ProductsContent).Query)
	require.Len(t, out[1].Products, 1)
	assert.Equal(t, "Lamp", out[1].Products[0].Title)
}
