package db

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/newsalert/internal/news"
)

// ListUserLocations returns every profile with a non-empty location.
func (p *Pool) ListUserLocations(ctx context.Context) ([]news.UserLocationProfile, error) {
	const q = `
SELECT user_id, location, push_token
FROM newsalert.user_profiles
WHERE btrim(location) <> ''
ORDER BY user_id
`
	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query user locations: %w", err)
	}
	defer rows.Close()

	var out []news.UserLocationProfile
	for rows.Next() {
		var (
			profile   news.UserLocationProfile
			pushToken *string
		)
		if err := rows.Scan(&profile.UserID, &profile.Location, &pushToken); err != nil {
			return nil, fmt.Errorf("scan user location: %w", err)
		}
		profile.PushToken = derefString(pushToken)
		out = append(out, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user locations: %w", err)
	}
	return out, nil
}

// UpsertUserProfile stores a user's location. An empty push token keeps the
// stored one.
func (p *Pool) UpsertUserProfile(ctx context.Context, profile news.UserLocationProfile) error {
	userID := strings.TrimSpace(profile.UserID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	location := strings.TrimSpace(profile.Location)
	if location == "" {
		return fmt.Errorf("location is required")
	}

	const q = `
INSERT INTO newsalert.user_profiles (user_id, location, push_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (user_id) DO UPDATE SET
	location = EXCLUDED.location,
	push_token = COALESCE(EXCLUDED.push_token, newsalert.user_profiles.push_token),
	updated_at = EXCLUDED.updated_at
`
	if _, err := p.Exec(ctx, q, userID, location, nullableString(profile.PushToken), nowUTC()); err != nil {
		return fmt.Errorf("upsert user profile user_id=%s: %w", userID, err)
	}
	return nil
}
