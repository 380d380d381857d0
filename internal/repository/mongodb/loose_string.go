package mongodb

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// looseString decodes any scalar BSON value into text. Older writers stored
// whatever JSON type the client sent, so a phone may arrive as a number.
type looseString string

func (s *looseString) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeString:
		*s = looseString(raw.StringValue())
	case bson.TypeNull, bson.TypeUndefined:
		*s = ""
	case bson.TypeInt32:
		*s = looseString(strconv.FormatInt(int64(raw.Int32()), 10))
	case bson.TypeInt64:
		*s = looseString(strconv.FormatInt(raw.Int64(), 10))
	case bson.TypeDouble:
		*s = looseString(strconv.FormatFloat(raw.Double(), 'f', -1, 64))
	case bson.TypeDecimal128:
		*s = looseString(raw.Decimal128().String())
	case bson.TypeBoolean:
		*s = looseString(strconv.FormatBool(raw.Boolean()))
	default:
		if err := raw.Validate(); err != nil {
			return err
		}
		*s = looseString(raw.String())
	}
	return nil
}
