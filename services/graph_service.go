package services

import (
	"context"
	"fmt"

	"basin-research-platform/internal/logger"
	"basin-research-platform/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphService wraps the property graph of papers, authors and concepts.
// The driver is created once at startup and shared; sessions are per call.
type GraphService struct {
	driver neo4j.DriverWithContext
}

func NewGraphService(driver neo4j.DriverWithContext) *GraphService {
	return &GraphService{driver: driver}
}

// PaperGraphMetadata is the graph-side view of one paper
type PaperGraphMetadata struct {
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	Authors  []string `json:"authors"`
	Concepts []string `json:"concepts"`
}

const (
	candidatesByAuthorQuery = `
		MATCH (p:Paper)-[:WRITTEN_BY]->(a:Author)
		WHERE toLower(a.name) CONTAINS toLower($author)
		RETURN p.id AS paper_id`

	candidatesByKeywordQuery = `
		MATCH (p:Paper)-[:ABOUT]->(c:Concept)
		WHERE toLower(c.name) CONTAINS toLower($keyword)
		RETURN p.id AS paper_id
		UNION
		MATCH (p:Paper)
		WHERE toLower(p.title) CONTAINS toLower($keyword)
		RETURN p.id AS paper_id`
)

// CandidatePapers resolves an entity set to the papers it points at:
// author names match by case-insensitive substring against WRITTEN_BY
// targets, keywords and concepts longer than 2 characters match concept
// names or paper titles. Results are unioned into one unordered set.
//
// Failures are soft. Sub-queries that error are logged and skipped, the
// partial set plus the first error are returned, and callers are expected
// to treat an error as "no candidate restriction" so retrieval can proceed
// on vector search alone.
func (s *GraphService) CandidatePapers(ctx context.Context, entities models.EntitySet) (map[string]struct{}, error) {
	candidates := make(map[string]struct{})
	if entities.IsEmpty() {
		return candidates, nil
	}
	var firstErr error

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	for _, author := range entities.Authors {
		ids, err := s.readPaperIDs(ctx, session, candidatesByAuthorQuery, map[string]any{"author": author})
		if err != nil {
			logger.Warn("Graph author lookup failed", "author", author, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
	}

	terms := append(append([]string{}, entities.Keywords...), entities.Concepts...)
	for _, term := range terms {
		if len(term) <= 2 {
			continue
		}
		ids, err := s.readPaperIDs(ctx, session, candidatesByKeywordQuery, map[string]any{"keyword": term})
		if err != nil {
			logger.Warn("Graph keyword lookup failed", "keyword", term, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
	}

	return candidates, firstErr
}

func (s *GraphService) readPaperIDs(ctx context.Context, session neo4j.SessionWithContext, query string, params map[string]any) ([]string, error) {
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var ids []string
		for res.Next(ctx) {
			if value, ok := res.Record().Get("paper_id"); ok {
				if id, ok := value.(string); ok {
					ids = append(ids, id)
				}
			}
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// PaperMetadata returns the graph view of one paper with its authors and
// concepts collected
func (s *GraphService) PaperMetadata(ctx context.Context, paperID string) (*PaperGraphMetadata, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (p:Paper {id: $paper_id})
			OPTIONAL MATCH (p)-[:WRITTEN_BY]->(a:Author)
			OPTIONAL MATCH (p)-[:ABOUT]->(c:Concept)
			RETURN p.title AS title, p.year AS year,
			       collect(DISTINCT a.name) AS authors,
			       collect(DISTINCT c.name) AS concepts`,
			map[string]any{"paper_id": paperID})
		if err != nil {
			return nil, err
		}

		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}

		meta := &PaperGraphMetadata{}
		if title, ok := record.Get("title"); ok {
			meta.Title, _ = title.(string)
		}
		if year, ok := record.Get("year"); ok {
			if y, ok := year.(int64); ok {
				meta.Year = int(y)
			}
		}
		meta.Authors = stringList(record, "authors")
		meta.Concepts = stringList(record, "concepts")
		return meta, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load paper metadata: %w", err)
	}
	return result.(*PaperGraphMetadata), nil
}

// UpsertPaper merges a paper node with its author and concept links.
// Used by the ingestion pipeline; idempotent by paper id and names.
func (s *GraphService) UpsertPaper(ctx context.Context, paperID, title, filename string, year int, authors, concepts []string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (p:Paper {id: $paper_id})
			SET p.title = $title, p.filename = $filename, p.year = $year`,
			map[string]any{
				"paper_id": paperID,
				"title":    title,
				"filename": filename,
				"year":     year,
			})
		if err != nil {
			return nil, err
		}

		for _, author := range authors {
			if author == "" {
				continue
			}
			_, err := tx.Run(ctx, `
				MATCH (p:Paper {id: $paper_id})
				MERGE (a:Author {name: $author})
				MERGE (p)-[:WRITTEN_BY]->(a)`,
				map[string]any{"paper_id": paperID, "author": author})
			if err != nil {
				return nil, err
			}
		}

		for _, concept := range concepts {
			if concept == "" {
				continue
			}
			_, err := tx.Run(ctx, `
				MATCH (p:Paper {id: $paper_id})
				MERGE (c:Concept {name: $concept})
				MERGE (p)-[:ABOUT]->(c)`,
				map[string]any{"paper_id": paperID, "concept": concept})
			if err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert paper graph: %w", err)
	}
	return nil
}

// CorpusStats counts graph nodes and edges for the stats surface
func (s *GraphService) CorpusStats(ctx context.Context) (*models.CorpusStats, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	counts := map[string]string{
		"papers":      `MATCH (p:Paper) RETURN count(p) AS n`,
		"authors":     `MATCH (a:Author) RETURN count(a) AS n`,
		"concepts":    `MATCH (c:Concept) RETURN count(c) AS n`,
		"authorships": `MATCH ()-[r:WRITTEN_BY]->() RETURN count(r) AS n`,
		"topics":      `MATCH ()-[r:ABOUT]->() RETURN count(r) AS n`,
	}

	stats := &models.CorpusStats{}
	for name, query := range counts {
		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, query, nil)
			if err != nil {
				return nil, err
			}
			record, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			if value, ok := record.Get("n"); ok {
				if n, ok := value.(int64); ok {
					return n, nil
				}
			}
			return int64(0), nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}

		n := result.(int64)
		switch name {
		case "papers":
			stats.Papers = n
		case "authors":
			stats.Authors = n
		case "concepts":
			stats.Concepts = n
		case "authorships":
			stats.Authorships = n
		case "topics":
			stats.Topics = n
		}
	}

	return stats, nil
}

// Ping verifies graph connectivity for health checks
func (s *GraphService) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func stringList(record *neo4j.Record, key string) []string {
	out := []string{}
	value, ok := record.Get(key)
	if !ok {
		return out
	}
	items, ok := value.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
