package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/scrape"
	"github.com/sells-group/rumoo/pkg/anthropic"
	anthropicmocks "github.com/sells-group/rumoo/pkg/anthropic/mocks"
	"github.com/sells-group/rumoo/pkg/geocode"
	geocodemocks "github.com/sells-group/rumoo/pkg/geocode/mocks"
	"github.com/sells-group/rumoo/pkg/google"
	googlemocks "github.com/sells-group/rumoo/pkg/google/mocks"
)

func TestGeocoder(t *testing.T) {
	client := geocodemocks.NewMockClient(t)
	client.On("Geocode", mock.Anything, "1600 Amphitheatre Pkwy").
		Return(&geocode.Result{Lat: 37.42, Lng: -122.08, City: "Mountain View", State: "CA", Zip: "94043"}, nil).Once()
	client.On("Geocode", mock.Anything, "nowhere").Return(nil, nil).Once()
	client.On("Geocode", mock.Anything, "broken").Return(nil, errors.New("boom")).Once()

	g := NewGeocoder(client, nil)
	ctx := context.Background()

	got := g.Geocode(ctx, "1600 Amphitheatre Pkwy")
	require.NotNil(t, got)
	assert.Equal(t, model.GeoResult{Lat: 37.42, Lng: -122.08, City: "Mountain View", State: "CA", Zip: "94043"}, *got)

	assert.Nil(t, g.Geocode(ctx, "nowhere"))
	assert.Nil(t, g.Geocode(ctx, "broken"))
	assert.Nil(t, NewGeocoder(nil, nil).Geocode(ctx, "anything"))
}

func TestLocationAnalyzer_DefaultsWithoutLocator(t *testing.T) {
	li := NewLocationAnalyzer(nil).Analyze(context.Background(), 34.0522, -118.2437)
	require.NotNil(t, li)
	assert.Equal(t, model.DefaultAmenities(), li.Amenities)
	assert.Equal(t, 70, li.ProximityScore)
	assert.Equal(t, "moderate", li.Walkability)
	assert.Len(t, li.Geohash, 9)
}

func TestLocationAnalyzer_MixesLookupsAndDefaults(t *testing.T) {
	client := googlemocks.NewMockClient(t)
	client.On("NearestPlace", mock.Anything, 40.0, -73.0, "supermarket").
		Return(&google.Place{PlaceID: "p-market"}, nil).Once()
	client.On("WalkingSeconds", mock.Anything, 40.0, -73.0, "p-market").Return(170, nil).Once()
	client.On("NearestPlace", mock.Anything, 40.0, -73.0, "subway_station").
		Return(nil, &google.StatusError{StatusCode: 400}).Once()
	client.On("NearestPlace", mock.Anything, 40.0, -73.0, "cafe").
		Return(&google.Place{PlaceID: "p-cafe"}, nil).Once()
	client.On("WalkingSeconds", mock.Anything, 40.0, -73.0, "p-cafe").Return(0, nil).Once()
	for _, pt := range []string{"park", "gym", "pharmacy"} {
		client.On("NearestPlace", mock.Anything, 40.0, -73.0, pt).Return(nil, nil).Once()
	}

	li := NewLocationAnalyzer(NewAmenityLocator(client, nil, 0)).Analyze(context.Background(), 40.0, -73.0)

	want := model.DefaultAmenities()
	want.SupermarketMin = 3
	assert.Equal(t, want, li.Amenities)
	assert.Equal(t, "strong", li.DailyConvenience)
}

func TestVisionAnalyzer_ParsesFencedJSON(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	urls := make([]string, 12)
	for i := range urls {
		urls[i] = "https://photos.example/p.jpg"
	}

	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 600 &&
			req.Temperature != nil && *req.Temperature == 0.2 &&
			len(req.Messages) == 1 &&
			len(req.Messages[0].ImageURLs) == DefaultMaxPhotos &&
			req.Messages[0].Content == VisionPrompt(DefaultMaxPhotos)
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "```json\n" + `{
			"light_assessment": {"quality": "good", "natural_light_visible": true, "artificial_enhancement_suspected": true},
			"atmosphere": {"dominant_feeling": "calm", "calm_hectic_score": 30},
			"red_flags": ["water stain on ceiling"],
			"confidence": "medium"
		}` + "\n```"}},
	}, nil).Once()

	got := NewVisionAnalyzer(client, nil, "claude-haiku-4-5-20251001", 0).Analyze(context.Background(), urls)
	require.NotNil(t, got)
	assert.Equal(t, "good", got.LightAssessment.Quality)
	assert.True(t, got.LightAssessment.ArtificialEnhancementSuspected)
	assert.Equal(t, []string{"water stain on ceiling"}, got.RedFlags)
	assert.InDelta(t, 30, got.Atmosphere.CalmHecticScore, 0.001)
}

func TestVisionAnalyzer_NilOnFailure(t *testing.T) {
	ctx := context.Background()
	urls := []string{"https://photos.example/a.jpg"}

	assert.Nil(t, NewVisionAnalyzer(nil, nil, "m", 8).Analyze(ctx, urls))

	client := anthropicmocks.NewMockClient(t)
	assert.Nil(t, NewVisionAnalyzer(client, nil, "m", 8).Analyze(ctx, nil))

	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded")).Once()
	assert.Nil(t, NewVisionAnalyzer(client, nil, "m", 8).Analyze(ctx, urls))

	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "I cannot see any photos."}},
	}, nil).Once()
	assert.Nil(t, NewVisionAnalyzer(client, nil, "m", 8).Analyze(ctx, urls))
}

func TestParsePhotoInsights_Empty(t *testing.T) {
	_, err := ParsePhotoInsights("```json\n```")
	assert.Error(t, err)
}

func TestParsePhotoInsights_NoAssessment(t *testing.T) {
	for _, text := range []string{"null", "```json\nnull\n```", "{}"} {
		got, err := ParsePhotoInsights(text)
		assert.Error(t, err, text)
		assert.Nil(t, got, text)
	}

	_, err := ParsePhotoInsights(`{"confidence": 5}`)
	assert.ErrorContains(t, err, "enrich: decode vision response")
}

func TestVisionAnalyzer_NullResponseIsNil(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "null"}},
	}, nil).Once()

	got := NewVisionAnalyzer(client, nil, "m", 8).Analyze(context.Background(), []string{"https://photos.example/a.jpg"})
	assert.Nil(t, got)
}

type fixedScraper struct {
	name   string
	result *scrape.Result
	err    error
}

func (f fixedScraper) Name() string           { return f.name }
func (f fixedScraper) Supports(_ string) bool { return true }
func (f fixedScraper) Scrape(_ context.Context, _ string) (*scrape.Result, error) {
	return f.result, f.err
}

func TestListingScraper(t *testing.T) {
	ctx := context.Background()
	u := "https://www.zillow.com/homedetails/1"

	got, provider := NewListingScraper(nil).Scrape(ctx, u)
	assert.Nil(t, got)
	assert.Equal(t, ProviderNone, provider)

	failing := scrape.NewChain(fixedScraper{name: "apify", err: errors.New("quota")})
	got, provider = NewListingScraper(failing).Scrape(ctx, u)
	assert.Nil(t, got)
	assert.Equal(t, "apify", provider)

	ok := &scrape.Result{Source: "html", Listing: &model.ListingCapture{Address: "1 Main St, Austin, TX"}}
	chain := scrape.NewChain(fixedScraper{name: "apify", err: errors.New("quota")}, fixedScraper{name: "html", result: ok})
	got, provider = NewListingScraper(chain).Scrape(ctx, u)
	assert.Same(t, ok, got)
	assert.Equal(t, "html", provider)
}
