package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"

	"github.com/devinhayward/concrete-tickets/db/ent/schema/utils"
)

type SourceFile struct {
	ent.Schema
}

func (SourceFile) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "source_files"},
	}
}

func (SourceFile) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.String("source_path").NotEmpty(),
		field.String("filename").NotEmpty(),
		field.String("file_ext").NotEmpty(),
		field.Int64("file_size").NonNegative(),
		// hex-encoded SHA-256 of the file contents
		field.String("content_hash").NotEmpty().
			Validate(utils.HexValidator(64)),
		field.Time("uploaded_at").Default(time.Now),
	}
}

func (SourceFile) Edges() []ent.Edge {
	return []ent.Edge{
		// ONE file -> MANY jobs
		edge.To("jobs", ExtractJob.Type),
		// ONE file -> MANY archived tickets
		edge.To("tickets", TicketRecord.Type),
	}
}

func (SourceFile) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("content_hash").Unique(),
		index.Fields("uploaded_at"),
	}
}
