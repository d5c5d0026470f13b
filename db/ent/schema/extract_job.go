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

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/db/ent/schema/utils"
)

type ExtractJob struct{ ent.Schema }

func (ExtractJob) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "extract_jobs"},
	}
}

func (ExtractJob) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		// explicit FK
		field.UUID("file_id", uuid.UUID{}),
		field.String("format").NotEmpty().
			Validate(utils.EnumValidator(constants.FileTypes...)),
		field.String("status").NotEmpty().
			Validate(utils.EnumValidator(constants.JobStatuses...)),
		field.String("error_message").Optional().Nillable(),
		field.Int("page_count").NonNegative().Default(0),
		field.Int("ticket_count").NonNegative().Default(0),
		field.Time("started_at").Default(time.Now),
		field.Time("finished_at").Optional().Nillable(),
	}
}

func (ExtractJob) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("file", SourceFile.Type).
			Ref("jobs").
			Field("file_id").
			Unique().
			Required(),
		// ONE job -> MANY archived tickets
		edge.To("tickets", TicketRecord.Type),
	}
}

func (ExtractJob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("file_id"),
		index.Fields("status", "started_at"),
	}
}
