package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"legal-rag-service/internal/config"
	"legal-rag-service/internal/logging"
)

const (
	defaultCollection = "legal_documents"
	payloadKeyID      = "id"
	payloadKeyText    = "document"
)

// QdrantStore implements VectorStore backed by a Qdrant collection. Chunk
// ids are arbitrary strings ("doc_001_chunk_0"); Qdrant point ids must be
// UUIDs, so each chunk id maps to a deterministic SHA1-derived UUID and the
// original id travels in the payload.
type QdrantStore struct {
	client         *qdrant.Client
	config         *config.QdrantConfig
	collectionName string
	vectorSize     int
	logger         logging.Logger
}

// NewQdrantStore creates a Qdrant vector store; Initialize must be called
// before any other operation. vectorSize is the embedding dimension of the
// configured embedding model.
func NewQdrantStore(cfg *config.QdrantConfig, vectorSize int) *QdrantStore {
	collectionName := cfg.Collection
	if collectionName == "" {
		collectionName = defaultCollection
	}
	return &QdrantStore{
		config:         cfg,
		collectionName: collectionName,
		vectorSize:     vectorSize,
		logger:         logging.WithComponent("qdrant"),
	}
}

// Initialize connects to Qdrant and creates the collection if missing
func (qs *QdrantStore) Initialize(ctx context.Context) error {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   qs.config.Host,
		Port:   qs.config.Port,
		APIKey: qs.config.APIKey,
		UseTLS: qs.config.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	qs.client = client

	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	if err := qs.ensureCollection(ctx); err != nil {
		return err
	}

	qs.logger.Info("Qdrant collection initialized",
		"collection", qs.collectionName, "vector_size", qs.vectorSize)
	return nil
}

func (qs *QdrantStore) ensureCollection(ctx context.Context) error {
	collections, err := qs.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == qs.collectionName {
			return nil
		}
	}

	err = qs.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: qs.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(qs.vectorSize), // #nosec G115 -- dimension is a small positive constant
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", qs.collectionName, err)
	}
	qs.logger.Info("Created Qdrant collection", "collection", qs.collectionName)
	return nil
}

// Add upserts chunks into the collection. The single Upsert call makes the
// write all-or-nothing per document.
func (qs *QdrantStore) Add(ctx context.Context, ids []string, embeddings [][]float64, texts []string, metadatas []map[string]interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	if len(embeddings) != len(ids) || len(texts) != len(ids) || len(metadatas) != len(ids) {
		return fmt.Errorf("mismatched add arrays: ids=%d embeddings=%d texts=%d metadatas=%d",
			len(ids), len(embeddings), len(texts), len(metadatas))
	}

	points := make([]*qdrant.PointStruct, 0, len(ids))
	for i, id := range ids {
		points = append(points, &qdrant.PointStruct{
			Id:      qs.pointID(id),
			Vectors: qdrant.NewVectors(float64sTo32(embeddings[i])...),
			Payload: qs.buildPayload(id, texts[i], metadatas[i]),
		})
	}

	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	if _, err := qs.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: qs.collectionName,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}

	qs.logger.Debug("Upserted chunks", "count", len(points))
	return nil
}

// Search returns the k nearest entries matching the where-filter. The
// reported distance is 1 - cosine similarity.
func (qs *QdrantStore) Search(ctx context.Context, queryVec []float64, k int, where Where) (*QueryResult, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if k <= 0 {
		k = 1
	}

	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	points, err := qs.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: qs.collectionName,
		Query:          qdrant.NewQuery(float64sTo32(queryVec)...),
		Limit:          qdrant.PtrOf(uint64(k)), // #nosec G115 -- k is validated positive
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         qs.buildFilter(where),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	result := &QueryResult{
		IDs:       make([]string, 0, len(points)),
		Texts:     make([]string, 0, len(points)),
		Metadatas: make([]map[string]interface{}, 0, len(points)),
		Distances: make([]float64, 0, len(points)),
	}
	for _, point := range points {
		payload := point.GetPayload()
		result.IDs = append(result.IDs, payloadString(payload, payloadKeyID))
		result.Texts = append(result.Texts, payloadString(payload, payloadKeyText))
		result.Metadatas = append(result.Metadatas, payloadToMetadata(payload))
		result.Distances = append(result.Distances, 1-float64(point.GetScore()))
	}
	return result, nil
}

// DeleteByIDs removes the entries with the given chunk ids
func (qs *QdrantStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qs.pointID(id)
	}

	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	if _, err := qs.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: qs.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete %d points: %w", len(ids), err)
	}
	return nil
}

// DeleteWhere removes every entry matching the where-filter
func (qs *QdrantStore) DeleteWhere(ctx context.Context, where Where) error {
	filter := qs.buildFilter(where)
	if filter == nil {
		return fmt.Errorf("delete filter cannot be empty")
	}

	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	if _, err := qs.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: qs.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete by filter: %w", err)
	}
	return nil
}

// Update modifies an existing entry. The point is read back first so that
// attributes not being updated are preserved.
func (qs *QdrantStore) Update(ctx context.Context, id string, embedding []float64, text string, metadata map[string]interface{}) error {
	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	points, err := qs.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: qs.collectionName,
		Ids:            []*qdrant.PointId{qs.pointID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch point %s: %w", id, err)
	}
	if len(points) == 0 {
		return fmt.Errorf("chunk not found: %s", id)
	}

	existing := points[0]
	vector := float64sTo32(embedding)
	if len(vector) == 0 {
		if v := existing.GetVectors().GetVector(); v != nil {
			vector = v.GetData()
		}
	}
	if text == "" {
		text = payloadString(existing.GetPayload(), payloadKeyText)
	}
	if metadata == nil {
		metadata = payloadToMetadata(existing.GetPayload())
	}

	if _, err := qs.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: qs.collectionName,
		Points: []*qdrant.PointStruct{{
			Id:      qs.pointID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qs.buildPayload(id, text, metadata),
		}},
	}); err != nil {
		return fmt.Errorf("failed to update point %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored chunks
func (qs *QdrantStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	count, err := qs.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: qs.collectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int64(count), nil // #nosec G115 -- point counts stay far below int64 max
}

// Reset drops and recreates the collection
func (qs *QdrantStore) Reset(ctx context.Context) error {
	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	if err := qs.client.DeleteCollection(ctx, qs.collectionName); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", qs.collectionName, err)
	}
	if err := qs.ensureCollection(ctx); err != nil {
		return err
	}
	qs.logger.Info("Collection reset", "collection", qs.collectionName)
	return nil
}

// HealthCheck verifies the collection is reachable
func (qs *QdrantStore) HealthCheck(ctx context.Context) error {
	if qs.client == nil {
		return fmt.Errorf("qdrant store not initialized")
	}
	ctx, cancel := qs.opContext(ctx)
	defer cancel()

	if _, err := qs.client.GetCollectionInfo(ctx, qs.collectionName); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Close releases the client connection
func (qs *QdrantStore) Close() error {
	if qs.client != nil {
		if err := qs.client.Close(); err != nil {
			return fmt.Errorf("failed to close Qdrant client: %w", err)
		}
	}
	return nil
}

// opContext applies the configured per-call timeout
func (qs *QdrantStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(qs.config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// pointID maps a chunk id onto a deterministic UUID point id, keeping Add
// idempotent per id.
func (qs *QdrantStore) pointID(id string) *qdrant.PointId {
	derived := uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: derived.String()}}
}

func (qs *QdrantStore) buildPayload(id, text string, metadata map[string]interface{}) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(metadata)+2)
	for k, v := range metadata {
		if value := interfaceToValue(v); value != nil {
			payload[k] = value
		}
	}
	payload[payloadKeyID] = stringValue(id)
	payload[payloadKeyText] = stringValue(text)
	return payload
}

// buildFilter translates a where-filter into Qdrant Must conditions
func (qs *QdrantStore) buildFilter(where Where) *qdrant.Filter {
	flat := where.Conditions()
	if len(flat) == 0 {
		return nil
	}

	conditions := make([]*qdrant.Condition, 0, len(flat))
	for key, value := range flat {
		conditions = append(conditions, fieldCondition(key, value))
	}
	return &qdrant.Filter{Must: conditions}
}

func fieldCondition(key string, value interface{}) *qdrant.Condition {
	field := &qdrant.FieldCondition{Key: key}
	switch v := value.(type) {
	case string:
		field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}}
	case bool:
		field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: v}}
	case int:
		field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(v)}}
	case int64:
		field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: v}}
	case float64:
		// JSON numbers decode as float64; whole values match as integers
		if v == float64(int64(v)) {
			field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(v)}}
		} else {
			field.Range = &qdrant.Range{Gte: &v, Lte: &v}
		}
	default:
		field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: fmt.Sprintf("%v", v)}}
	}
	return &qdrant.Condition{ConditionOneOf: &qdrant.Condition_Field{Field: field}}
}

// Payload conversion helpers

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func interfaceToValue(v interface{}) *qdrant.Value {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return stringValue(val)
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		if val == float64(int64(val)) {
			return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
		}
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case []string:
		values := make([]*qdrant.Value, len(val))
		for i, s := range val {
			values[i] = stringValue(s)
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
	case []interface{}:
		values := make([]*qdrant.Value, 0, len(val))
		for _, item := range val {
			if converted := interfaceToValue(item); converted != nil {
				values = append(values, converted)
			}
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
	default:
		return stringValue(fmt.Sprintf("%v", val))
	}
}

func valueToInterface(v *qdrant.Value) interface{} {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := make([]interface{}, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			items = append(items, valueToInterface(item))
		}
		return items
	default:
		return nil
	}
}

// payloadToMetadata converts a point payload back into the metadata map,
// excluding the text body which travels separately.
func payloadToMetadata(payload map[string]*qdrant.Value) map[string]interface{} {
	metadata := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if k == payloadKeyText {
			continue
		}
		if converted := valueToInterface(v); converted != nil {
			metadata[k] = converted
		}
	}
	return metadata
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// float64sTo32 narrows service-layer vectors to the wire precision
func float64sTo32(f64 []float64) []float32 {
	if f64 == nil {
		return nil
	}
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
