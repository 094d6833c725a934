package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/db"
	"github.com/sells-group/rumoo/internal/model"
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

type rowIter interface {
	rowScanner
	Next() bool
	Err() error
	Close()
}

// conn abstracts the driver so both stores share one set of queries.
type conn interface {
	exec(ctx context.Context, query string, args ...any) (int64, error)
	queryRow(ctx context.Context, query string, args ...any) rowScanner
	query(ctx context.Context, query string, args ...any) (rowIter, error)
	isNoRows(err error) bool
}

// queries implements the record operations of Store. Statements are written
// with ? placeholders and rebound for the dialect.
type queries struct {
	c      conn
	ph     db.Placeholder
	prefix string
}

func (q *queries) rebind(s string) string {
	if q.ph == nil {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	n := 0
	for _, r := range s {
		if r == '?' {
			n++
			b.WriteString(q.ph(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *queries) wrap(err error, format string, args ...any) error {
	return eris.Wrapf(err, q.prefix+": "+format, args...)
}

func (q *queries) notFound(entity, key string) error {
	return eris.Wrapf(ErrNotFound, "%s: %s %s", q.prefix, entity, key)
}

func (q *queries) checkAffected(n int64, entity, key string) error {
	if n == 0 {
		return q.notFound(entity, key)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// --- Sources ---

func (q *queries) UpsertSource(ctx context.Context, src *model.Source) (*model.Source, error) {
	out := *src
	now := time.Now().UTC()
	if out.ID == "" {
		out.ID = uuid.New().String()
	}

	stmt, err := db.BuildUpsert(db.UpsertConfig{
		Table: "sources",
		Columns: []string{
			"id", "source_url", "source", "ingest_mode", "external_id", "raw_json",
			"scrape_attempted_at", "scrape_success", "scrape_provider", "created_at", "updated_at",
		},
		ConflictKeys: []string{"source_url"},
		UpdateCols: []string{
			"source", "ingest_mode", "external_id", "raw_json",
			"scrape_attempted_at", "scrape_success", "scrape_provider", "updated_at",
		},
		Returning: []string{"id", "created_at"},
	}, q.ph)
	if err != nil {
		return nil, q.wrap(err, "build source upsert")
	}

	err = q.c.queryRow(ctx, stmt,
		out.ID, out.SourceURL, string(out.Provider), string(out.IngestMode), out.ExternalID,
		nullJSON(out.RawJSON), out.ScrapeAttemptedAt, out.ScrapeSuccess, out.ScrapeProvider, now, now,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, q.wrap(err, "upsert source %s", out.SourceURL)
	}
	out.UpdatedAt = now
	return &out, nil
}

// --- Properties ---

const propertyColumns = `id, source_id, title, address, price, beds, baths, sqft, year_built,
	property_type, description, image_urls, lat, lng, city, state, zip, geohash,
	photo_insights, photo_insights_at, status, needs_confirmation, confirmation_token,
	confirmed_at, error_message, created_at, updated_at`

func scanProperty(row rowScanner) (*model.Property, error) {
	var p model.Property
	var imageURLs, insights []byte
	var token *string
	var status string

	err := row.Scan(
		&p.ID, &p.SourceID, &p.Title, &p.Address, &p.Price, &p.Beds, &p.Baths, &p.Sqft, &p.YearBuilt,
		&p.PropertyType, &p.Description, &imageURLs, &p.Lat, &p.Lng, &p.City, &p.State, &p.Zip, &p.Geohash,
		&insights, &p.PhotoInsightsAt, &status, &p.NeedsConfirmation, &token,
		&p.ConfirmedAt, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = model.PropertyStatus(status)
	if token != nil {
		p.ConfirmationToken = *token
	}
	if len(imageURLs) > 0 {
		if err := json.Unmarshal(imageURLs, &p.ImageURLs); err != nil {
			return nil, eris.Wrap(err, "unmarshal image_urls")
		}
	}
	if len(insights) > 0 {
		p.PhotoInsights = &model.PhotoInsights{}
		if err := json.Unmarshal(insights, p.PhotoInsights); err != nil {
			return nil, eris.Wrap(err, "unmarshal photo_insights")
		}
	}
	return &p, nil
}

func (q *queries) CreateProperty(ctx context.Context, p *model.Property) (*model.Property, error) {
	out := *p
	now := time.Now().UTC()
	out.ID = uuid.New().String()
	out.CreatedAt = now
	out.UpdatedAt = now
	if out.ImageURLs == nil {
		out.ImageURLs = []string{}
	}

	imageURLs, err := json.Marshal(out.ImageURLs)
	if err != nil {
		return nil, q.wrap(err, "marshal image_urls")
	}
	var insights any
	if out.PhotoInsights != nil {
		b, err := json.Marshal(out.PhotoInsights)
		if err != nil {
			return nil, q.wrap(err, "marshal photo_insights")
		}
		insights = b
	}

	_, err = q.c.exec(ctx, q.rebind(`INSERT INTO properties (`+propertyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		out.ID, out.SourceID, out.Title, out.Address, out.Price, out.Beds, out.Baths, out.Sqft, out.YearBuilt,
		out.PropertyType, out.Description, imageURLs, out.Lat, out.Lng, out.City, out.State, out.Zip, out.Geohash,
		insights, out.PhotoInsightsAt, string(out.Status), out.NeedsConfirmation, nullString(out.ConfirmationToken),
		out.ConfirmedAt, out.ErrorMessage, out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		return nil, q.wrap(err, "insert property")
	}
	return &out, nil
}

func (q *queries) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	p, err := scanProperty(q.c.queryRow(ctx,
		q.rebind(`SELECT `+propertyColumns+` FROM properties WHERE id = ?`), id))
	if err != nil {
		if q.c.isNoRows(err) {
			return nil, q.notFound("property", id)
		}
		return nil, q.wrap(err, "get property %s", id)
	}
	return p, nil
}

func (q *queries) GetPropertyByToken(ctx context.Context, token string) (*model.Property, error) {
	p, err := scanProperty(q.c.queryRow(ctx,
		q.rebind(`SELECT `+propertyColumns+` FROM properties WHERE confirmation_token = ?`), token))
	if err != nil {
		if q.c.isNoRows(err) {
			return nil, q.notFound("confirmation token", token)
		}
		return nil, q.wrap(err, "get property by token")
	}
	return p, nil
}

func propertyAssignments(u model.PropertyUpdate) (db.Assignments, error) {
	var set db.Assignments
	if u.SourceID != nil {
		set.Add("source_id", *u.SourceID)
	}
	if u.Title != nil {
		set.Add("title", *u.Title)
	}
	if u.Address != nil {
		set.Add("address", *u.Address)
	}
	if u.Price != nil {
		set.Add("price", *u.Price)
	}
	if u.Beds != nil {
		set.Add("beds", *u.Beds)
	}
	if u.Baths != nil {
		set.Add("baths", *u.Baths)
	}
	if u.Sqft != nil {
		set.Add("sqft", *u.Sqft)
	}
	if u.YearBuilt != nil {
		set.Add("year_built", *u.YearBuilt)
	}
	if u.PropertyType != nil {
		set.Add("property_type", *u.PropertyType)
	}
	if u.Lat != nil {
		set.Add("lat", *u.Lat)
	}
	if u.Lng != nil {
		set.Add("lng", *u.Lng)
	}
	if u.City != nil {
		set.Add("city", *u.City)
	}
	if u.State != nil {
		set.Add("state", *u.State)
	}
	if u.Zip != nil {
		set.Add("zip", *u.Zip)
	}
	if u.Geohash != nil {
		set.Add("geohash", *u.Geohash)
	}
	if u.Location != nil {
		set.Add("location", u.Location)
	}
	if u.PhotoInsights != nil {
		b, err := json.Marshal(u.PhotoInsights)
		if err != nil {
			return nil, eris.Wrap(err, "marshal photo_insights")
		}
		set.Add("photo_insights", b)
	}
	if u.PhotoInsightsAt != nil {
		set.Add("photo_insights_at", *u.PhotoInsightsAt)
	}
	if u.Status != nil {
		set.Add("status", string(*u.Status))
	}
	if u.NeedsConfirmation != nil {
		set.Add("needs_confirmation", *u.NeedsConfirmation)
	}
	if u.ConfirmedAt != nil {
		set.Add("confirmed_at", *u.ConfirmedAt)
	}
	if u.ErrorMessage != nil {
		set.Add("error_message", *u.ErrorMessage)
	}
	return set, nil
}

func (q *queries) UpdateProperty(ctx context.Context, id string, u model.PropertyUpdate) error {
	if u.IsEmpty() {
		return nil
	}
	set, err := propertyAssignments(u)
	if err != nil {
		return q.wrap(err, "update property %s", id)
	}
	set.Add("updated_at", time.Now().UTC())

	stmt, args, err := db.BuildUpdate("properties", set, "id", id, q.ph)
	if err != nil {
		return q.wrap(err, "build property update")
	}
	n, err := q.c.exec(ctx, stmt, args...)
	if err != nil {
		return q.wrap(err, "update property %s", id)
	}
	return q.checkAffected(n, "property", id)
}

func (q *queries) ConfirmProperty(ctx context.Context, id string, u model.PropertyUpdate) error {
	if u.ConfirmedAt == nil {
		return q.wrap(eris.New("confirmed_at is required"), "confirm property %s", id)
	}
	set, err := propertyAssignments(u)
	if err != nil {
		return q.wrap(err, "confirm property %s", id)
	}
	set.Add("updated_at", time.Now().UTC())

	stmt, args, err := db.BuildUpdate("properties", set, "id", id, q.ph)
	if err != nil {
		return q.wrap(err, "build property confirmation")
	}
	n, err := q.c.exec(ctx, stmt+" AND confirmed_at IS NULL", args...)
	if err != nil {
		return q.wrap(err, "confirm property %s", id)
	}
	if n > 0 {
		return nil
	}
	if _, err := q.GetProperty(ctx, id); err != nil {
		return err
	}
	return eris.Wrapf(ErrAlreadyConfirmed, "%s: property %s", q.prefix, id)
}

// --- Ingest jobs ---

const jobColumns = `id, property_id, geocode_done, location_insights_done, photo_analysis_done,
	certificate_done, certificate_id, error_message, created_at, completed_at`

func (q *queries) CreateJob(ctx context.Context, propertyID string) (*model.IngestJob, error) {
	job := &model.IngestJob{
		ID:         uuid.New().String(),
		PropertyID: propertyID,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := q.c.exec(ctx, q.rebind(`INSERT INTO ingest_jobs (id, property_id, created_at) VALUES (?, ?, ?)`),
		job.ID, job.PropertyID, job.CreatedAt,
	)
	if err != nil {
		return nil, q.wrap(err, "insert job")
	}
	return job, nil
}

func (q *queries) UpdateJob(ctx context.Context, id string, u model.JobUpdate) error {
	var set db.Assignments
	if u.GeocodeDone != nil {
		set.Add("geocode_done", *u.GeocodeDone)
	}
	if u.LocationInsightsDone != nil {
		set.Add("location_insights_done", *u.LocationInsightsDone)
	}
	if u.PhotoAnalysisDone != nil {
		set.Add("photo_analysis_done", *u.PhotoAnalysisDone)
	}
	if u.CertificateDone != nil {
		set.Add("certificate_done", *u.CertificateDone)
	}
	if u.CertificateID != nil {
		set.Add("certificate_id", *u.CertificateID)
	}
	if u.ErrorMessage != nil {
		set.Add("error_message", *u.ErrorMessage)
	}
	if u.CompletedAt != nil {
		set.Add("completed_at", *u.CompletedAt)
	}
	if len(set) == 0 {
		return nil
	}

	stmt, args, err := db.BuildUpdate("ingest_jobs", set, "id", id, q.ph)
	if err != nil {
		return q.wrap(err, "build job update")
	}
	n, err := q.c.exec(ctx, stmt, args...)
	if err != nil {
		return q.wrap(err, "update job %s", id)
	}
	return q.checkAffected(n, "job", id)
}

func (q *queries) GetJob(ctx context.Context, id string) (*model.IngestJob, error) {
	var j model.IngestJob
	err := q.c.queryRow(ctx, q.rebind(`SELECT `+jobColumns+` FROM ingest_jobs WHERE id = ?`), id).Scan(
		&j.ID, &j.PropertyID, &j.GeocodeDone, &j.LocationInsightsDone, &j.PhotoAnalysisDone,
		&j.CertificateDone, &j.CertificateID, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		if q.c.isNoRows(err) {
			return nil, q.notFound("job", id)
		}
		return nil, q.wrap(err, "get job %s", id)
	}
	return &j, nil
}

// --- Location insights ---

func (q *queries) UpsertLocationInsight(ctx context.Context, li *model.LocationInsight) error {
	amenities, err := json.Marshal(li.Amenities)
	if err != nil {
		return q.wrap(err, "marshal amenities")
	}
	solar, err := json.Marshal(li.Solar)
	if err != nil {
		return q.wrap(err, "marshal solar")
	}
	noise, err := json.Marshal(li.Noise)
	if err != nil {
		return q.wrap(err, "marshal noise")
	}
	lifestyle, err := json.Marshal(li.Lifestyle)
	if err != nil {
		return q.wrap(err, "marshal lifestyle")
	}

	stmt, err := db.BuildUpsert(db.UpsertConfig{
		Table: "location_insights",
		Columns: []string{
			"id", "property_id", "walkability", "daily_convenience", "traffic_exposure",
			"neighbourhood_energy", "proximity_score", "amenities", "solar", "noise", "lifestyle",
			"geohash", "updated_at",
		},
		ConflictKeys: []string{"property_id"},
		UpdateCols: []string{
			"walkability", "daily_convenience", "traffic_exposure", "neighbourhood_energy",
			"proximity_score", "amenities", "solar", "noise", "lifestyle", "geohash", "updated_at",
		},
	}, q.ph)
	if err != nil {
		return q.wrap(err, "build location insight upsert")
	}

	_, err = q.c.exec(ctx, stmt,
		uuid.New().String(), li.PropertyID, li.Walkability, li.DailyConvenience, li.TrafficExposure,
		li.NeighbourhoodEnergy, li.ProximityScore, amenities, solar, noise, lifestyle,
		li.Geohash, time.Now().UTC(),
	)
	return q.wrap(err, "upsert location insight %s", li.PropertyID)
}

func (q *queries) GetLocationInsight(ctx context.Context, propertyID string) (*model.LocationInsight, error) {
	var li model.LocationInsight
	var amenities, solar, noise, lifestyle []byte

	err := q.c.queryRow(ctx, q.rebind(`SELECT id, property_id, walkability, daily_convenience,
		traffic_exposure, neighbourhood_energy, proximity_score, amenities, solar, noise, lifestyle,
		geohash, updated_at FROM location_insights WHERE property_id = ?`), propertyID).Scan(
		&li.ID, &li.PropertyID, &li.Walkability, &li.DailyConvenience, &li.TrafficExposure,
		&li.NeighbourhoodEnergy, &li.ProximityScore, &amenities, &solar, &noise, &lifestyle,
		&li.Geohash, &li.UpdatedAt,
	)
	if err != nil {
		if q.c.isNoRows(err) {
			return nil, q.notFound("location insight", propertyID)
		}
		return nil, q.wrap(err, "get location insight %s", propertyID)
	}

	for _, doc := range []struct {
		raw []byte
		dst any
	}{
		{amenities, &li.Amenities},
		{solar, &li.Solar},
		{noise, &li.Noise},
		{lifestyle, &li.Lifestyle},
	} {
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, q.wrap(err, "unmarshal location insight %s", propertyID)
		}
	}
	return &li, nil
}

// --- Certificates ---

const certificateColumns = `id, property_id, space_id, tier, status, version, document,
	source_inputs, error_message, created_at, updated_at, completed_at`

func scanCertificate(row rowScanner) (*model.Certificate, error) {
	var c model.Certificate
	var tier, status string
	var document, inputs []byte

	err := row.Scan(
		&c.ID, &c.PropertyID, &c.SpaceID, &tier, &status, &c.Version, &document,
		&inputs, &c.ErrorMessage, &c.CreatedAt, &c.UpdatedAt, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Tier = model.Tier(tier)
	c.Status = model.CertificateStatus(status)
	if len(document) > 0 {
		c.Document = json.RawMessage(document)
	}
	if len(inputs) > 0 {
		c.SourceInputs = json.RawMessage(inputs)
	}
	return &c, nil
}

func (q *queries) CreateCertificate(ctx context.Context, c *model.Certificate) (*model.Certificate, error) {
	out := *c
	now := time.Now().UTC()
	out.ID = uuid.New().String()
	out.CreatedAt = now
	out.UpdatedAt = now
	if out.Version == "" {
		out.Version = model.CertificateVersion
	}
	if out.Status == "" {
		out.Status = model.CertificateStatusPending
	}

	_, err := q.c.exec(ctx, q.rebind(`INSERT INTO certificates (`+certificateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		out.ID, out.PropertyID, out.SpaceID, string(out.Tier), string(out.Status), out.Version,
		nullJSON(out.Document), nullJSON(out.SourceInputs), out.ErrorMessage, out.CreatedAt, out.UpdatedAt,
		out.CompletedAt,
	)
	if err != nil {
		return nil, q.wrap(err, "insert certificate")
	}
	return &out, nil
}

func (q *queries) UpdateCertificate(ctx context.Context, id string, u model.CertificateUpdate) error {
	var set db.Assignments
	if u.Status != nil {
		set.Add("status", string(*u.Status))
	}
	if u.Document != nil {
		set.Add("document", []byte(u.Document))
	}
	if u.SourceInputs != nil {
		set.Add("source_inputs", []byte(u.SourceInputs))
	}
	if u.ErrorMessage != nil {
		set.Add("error_message", *u.ErrorMessage)
	}
	if u.CompletedAt != nil {
		set.Add("completed_at", *u.CompletedAt)
	}
	if len(set) == 0 {
		return nil
	}
	set.Add("updated_at", time.Now().UTC())

	stmt, args, err := db.BuildUpdate("certificates", set, "id", id, q.ph)
	if err != nil {
		return q.wrap(err, "build certificate update")
	}
	n, err := q.c.exec(ctx, stmt, args...)
	if err != nil {
		return q.wrap(err, "update certificate %s", id)
	}
	return q.checkAffected(n, "certificate", id)
}

func (q *queries) GetCertificate(ctx context.Context, id string) (*model.Certificate, error) {
	c, err := scanCertificate(q.c.queryRow(ctx,
		q.rebind(`SELECT `+certificateColumns+` FROM certificates WHERE id = ?`), id))
	if err != nil {
		if q.c.isNoRows(err) {
			return nil, q.notFound("certificate", id)
		}
		return nil, q.wrap(err, "get certificate %s", id)
	}
	return c, nil
}

func (q *queries) ListCertificates(ctx context.Context, filter model.CertificateFilter) ([]model.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE 1 = 1`
	var args []any

	if filter.PropertyID != "" {
		query += ` AND property_id = ?`
		args = append(args, filter.PropertyID)
	}
	if filter.SpaceID != "" {
		query += ` AND space_id = ?`
		args = append(args, filter.SpaceID)
	}
	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := q.c.query(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, q.wrap(err, "list certificates")
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, q.wrap(err, "scan certificate")
		}
		certs = append(certs, *c)
	}
	return certs, q.wrap(rows.Err(), "list certificates iterate")
}

// --- Spaces ---

const spaceColumns = `id, name, address_label, city, country, neighborhood, property_type,
	floor, area_m2, listing_price, created_at, updated_at`

func scanSpace(row rowScanner) (*model.Space, error) {
	var s model.Space
	err := row.Scan(
		&s.ID, &s.Name, &s.AddressLabel, &s.City, &s.Country, &s.Neighborhood, &s.PropertyType,
		&s.Floor, &s.AreaM2, &s.ListingPrice, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *queries) CreateSpace(ctx context.Context, s *model.Space) (*model.Space, error) {
	out := *s
	now := time.Now().UTC()
	out.ID = uuid.New().String()
	out.CreatedAt = now
	out.UpdatedAt = now

	_, err := q.c.exec(ctx, q.rebind(`INSERT INTO spaces (`+spaceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		out.ID, out.Name, out.AddressLabel, out.City, out.Country, out.Neighborhood, out.PropertyType,
		out.Floor, out.AreaM2, out.ListingPrice, out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		return nil, q.wrap(err, "insert space")
	}
	return &out, nil
}

func (q *queries) GetSpace(ctx context.Context, id string) (*model.Space, error) {
	s, err := scanSpace(q.c.queryRow(ctx,
		q.rebind(`SELECT `+spaceColumns+` FROM spaces WHERE id = ?`), id))
	if err != nil {
		if q.c.isNoRows(err) {
			return nil, q.notFound("space", id)
		}
		return nil, q.wrap(err, "get space %s", id)
	}
	return s, nil
}

func (q *queries) ListSpaces(ctx context.Context, filter model.SpaceFilter) ([]model.Space, int, error) {
	where := ` WHERE 1 = 1`
	var args []any
	if filter.City != "" {
		where += ` AND city = ?`
		args = append(args, filter.City)
	}
	if filter.PropertyType != "" {
		where += ` AND property_type = ?`
		args = append(args, filter.PropertyType)
	}

	var total int
	if err := q.c.queryRow(ctx, q.rebind(`SELECT COUNT(*) FROM spaces`+where), args...).Scan(&total); err != nil {
		return nil, 0, q.wrap(err, "count spaces")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	listArgs := append(append([]any{}, args...), limit, offset)

	rows, err := q.c.query(ctx,
		q.rebind(`SELECT `+spaceColumns+` FROM spaces`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`),
		listArgs...)
	if err != nil {
		return nil, 0, q.wrap(err, "list spaces")
	}
	defer rows.Close()

	var spaces []model.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, 0, q.wrap(err, "scan space")
		}
		spaces = append(spaces, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, q.wrap(err, "list spaces iterate")
	}
	return spaces, total, nil
}

// --- Mobile sessions ---

func (q *queries) CreateMobileSession(ctx context.Context, s *model.MobileSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := q.c.exec(ctx, q.rebind(`INSERT INTO mobile_sessions
		(id, phone_number, property_id, channel, state, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		s.ID, s.PhoneNumber, s.PropertyID, string(s.Channel), string(s.State), s.CreatedAt,
	)
	return q.wrap(err, "insert mobile session")
}

// --- Maintenance ---

func (q *queries) FailStuckProperties(ctx context.Context, before time.Time, message string) (int, error) {
	n, err := q.c.exec(ctx, q.rebind(`UPDATE properties SET status = ?, error_message = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?`),
		string(model.PropertyStatusError), message, time.Now().UTC(),
		string(model.PropertyStatusProcessing), before.UTC(),
	)
	if err != nil {
		return 0, q.wrap(err, "fail stuck properties")
	}
	return int(n), nil
}

func (q *queries) ExpireConfirmations(ctx context.Context, before time.Time, message string) (int, error) {
	n, err := q.c.exec(ctx, q.rebind(`UPDATE properties SET status = ?, error_message = ?, updated_at = ?
		WHERE status = ? AND confirmed_at IS NULL AND created_at < ?`),
		string(model.PropertyStatusError), message, time.Now().UTC(),
		string(model.PropertyStatusNeedsConfirmation), before.UTC(),
	)
	if err != nil {
		return 0, q.wrap(err, "expire confirmations")
	}
	return int(n), nil
}
