// internal/discovery/serial/adapters.go
package serial

import "strings"

// AdapterDatabase names common USB-to-serial bridge chips by VID/PID
type AdapterDatabase struct {
	vendors map[string]*VendorInfo
}

// VendorInfo contains vendor-specific information
type VendorInfo struct {
	Name     string
	products map[string]string
}

// NewAdapterDatabase creates and initializes the adapter database
func NewAdapterDatabase() *AdapterDatabase {
	db := &AdapterDatabase{vendors: make(map[string]*VendorInfo)}
	db.initializeDatabase()
	return db
}

func (db *AdapterDatabase) initializeDatabase() {
	db.AddVendor("0403", &VendorInfo{Name: "FTDI"})
	db.AddProduct("0403", "6001", "FT232R")
	db.AddProduct("0403", "6010", "FT2232")
	db.AddProduct("0403", "6014", "FT232H")
	db.AddProduct("0403", "6015", "FT-X")

	db.AddVendor("067B", &VendorInfo{Name: "Prolific"})
	db.AddProduct("067B", "2303", "PL2303")

	db.AddVendor("10C4", &VendorInfo{Name: "Silicon Labs"})
	db.AddProduct("10C4", "EA60", "CP210x")

	db.AddVendor("1A86", &VendorInfo{Name: "WCH"})
	db.AddProduct("1A86", "7523", "CH340")
	db.AddProduct("1A86", "55D4", "CH9102")
}

// AddVendor adds a new vendor to the database
func (db *AdapterDatabase) AddVendor(vendorID string, info *VendorInfo) {
	if info.products == nil {
		info.products = make(map[string]string)
	}
	db.vendors[strings.ToUpper(vendorID)] = info
}

// AddProduct adds a new product to an existing vendor
func (db *AdapterDatabase) AddProduct(vendorID, productID, name string) {
	if vendor, exists := db.vendors[strings.ToUpper(vendorID)]; exists {
		vendor.products[strings.ToUpper(productID)] = name
	}
}

// Describe returns a human readable adapter name, or "" when unknown
func (db *AdapterDatabase) Describe(vendorID, productID string) string {
	vendor, ok := db.vendors[strings.ToUpper(vendorID)]
	if !ok {
		return ""
	}
	if product, ok := vendor.products[strings.ToUpper(productID)]; ok {
		return vendor.Name + " " + product
	}
	return vendor.Name
}
