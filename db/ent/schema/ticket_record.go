package schema

import (
	"encoding/json"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"
)

type TicketRecord struct{ ent.Schema }

func (TicketRecord) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "tickets"},
	}
}

func (TicketRecord) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		// explicit FKs
		field.UUID("job_id", uuid.UUID{}),
		field.UUID("file_id", uuid.UUID{}),
		field.Int("page").Positive(),
		field.String("ticket_no").NotEmpty(),
		// raw page text, dd/mm/yyyy; never parsed into a date type
		field.String("delivery_date").Optional().Nillable(),
		field.String("delivery_address").Optional().Nillable(),
		field.String("customer_code").Optional().Nillable(),
		// full normalized ticket JSON
		field.JSON("payload", json.RawMessage{}),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (TicketRecord) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY tickets -> ONE job (FK: tickets.job_id)
		edge.From("job", ExtractJob.Type).
			Ref("tickets").
			Field("job_id").
			Required().
			Unique(),
		// MANY tickets -> ONE file (FK: tickets.file_id)
		edge.From("file", SourceFile.Type).
			Ref("tickets").
			Field("file_id").
			Required().
			Unique(),
	}
}

func (TicketRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("ticket_no").Unique(),
		index.Fields("delivery_date"),
		index.Fields("file_id"),
	}
}
