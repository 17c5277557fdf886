package mongowork

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestWorkDoc_IDsAreUUIDStrings(t *testing.T) {
	d := workDoc{
		ID:       "4b0e5c8e-2f43-4a63-9a71-0d1f1b9f2c11",
		ExportID: "exp-1",
		DriverID: "drv-1",
		VendorID: "ven-1",
		Status:   "Ongoing",
	}
	b, err := bson.Marshal(d)
	require.NoError(t, err)

	raw := bson.Raw(b)
	for _, key := range []string{"_id", "exportId", "driverId", "vendorId"} {
		require.Equal(t, bson.TypeString, raw.Lookup(key).Type, key)
	}
	require.Equal(t, d.ID, raw.Lookup("_id").StringValue())
}
