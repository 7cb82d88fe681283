package customers

// Table is the relational table holding the shared customer profile.
const Table = "customer_info"

// ProfileID is the id of the single logical profile row.
const ProfileID = 1

// DefaultCustomerName is used when no name has been assigned.
const DefaultCustomerName = "(unassigned)"

// Columns lists the customer_info columns in declaration order.
var Columns = []string{"id", "customer_name", "move_in_date"}

// Profile is the customer the whole group is searching on behalf of.
type Profile struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement:false" json:"-"`
	CustomerName string `gorm:"column:customer_name;type:text" json:"customer_name"`
	MoveInDate   string `gorm:"column:move_in_date;type:text" json:"move_in_date"`
}

// TableName provides the explicit table binding for GORM.
func (Profile) TableName() string {
	return Table
}

// SetRequest replaces the profile; nil fields fall back to defaults.
type SetRequest struct {
	CustomerName *string
	MoveInDate   *string
}
