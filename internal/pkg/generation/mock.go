package generation

import "fmt"

// Fixtures returned when the pipeline runs without generation credentials
// or with USE_MOCK_DATA set. They mirror real output closely enough to
// exercise the UI without paying for API calls.

const MockOCRText = `Property Details:
- Square Footage: Approximately 2,500 sq ft
- Bedrooms: 4
- Bathrooms: 2.5
- Year Built: 2015
- Lot Size: 0.25 acres

Features:
- Two-car garage
- Central air conditioning
- Hardwood floors
- Updated kitchen and bathrooms
- Energy-efficient windows`

const MockVisualAnalysis = `Interior Features:
- Modern kitchen with granite countertops and stainless steel appliances
- Hardwood flooring throughout main living areas
- Updated bathrooms with contemporary fixtures
- Spacious bedrooms with ample natural light
- Open floor plan connecting living, dining, and kitchen areas

Exterior Features:
- Well-maintained landscaping with mature trees
- Attached garage with driveway
- Covered front porch
- Backyard with patio area perfect for entertaining

Special Features:
- Vaulted ceilings in main living area
- Fireplace in family room
- Walk-in closets in master bedroom
- Energy-efficient windows
- Updated electrical and plumbing systems`

// ListingContent is the structured synthesis output shared by mock and
// real modes.
type ListingContent struct {
	MLSDescription string   `json:"mlsDescription"`
	Hashtags       []string `json:"hashtags"`
	SocialCaption  string   `json:"socialCaption"`
	CarouselText   string   `json:"carouselText"`
}

// MockListingContent returns the fixed placeholder listing for mock mode.
func MockListingContent(imageCount int) ListingContent {
	return ListingContent{
		MLSDescription: fmt.Sprintf(`Welcome to this stunning property that offers the perfect blend of comfort and style. This beautifully maintained home features %d thoughtfully designed spaces that create an inviting atmosphere for modern living.

The interior showcases high-quality finishes throughout, including updated flooring, contemporary fixtures, and an open floor plan that maximizes natural light. The kitchen is a chef's dream with modern appliances and ample counter space, perfect for entertaining guests or preparing family meals.

The property includes well-appointed bedrooms that provide comfortable retreats, along with updated bathrooms featuring quality fixtures and finishes. The living areas flow seamlessly, creating an ideal environment for both relaxation and entertaining.

Exterior features include attractive landscaping, outdoor living spaces, and a layout that maximizes both privacy and functionality. This home represents an excellent opportunity for those seeking a move-in-ready property with modern amenities and timeless appeal.

Located in a desirable area, this property offers convenient access to local amenities, schools, and transportation. Don't miss the chance to make this exceptional property your new home. Schedule a showing today to experience all that this wonderful property has to offer.`, imageCount),
		Hashtags:      []string{"#RealEstate", "#HomeForSale", "#PropertyListing", "#DreamHome", "#NewListing"},
		SocialCaption: `🏡 Beautiful property now available! This stunning home features modern updates, spacious living areas, and incredible attention to detail. Perfect for families or anyone looking for their next dream home. Contact us today to schedule a viewing! ✨ #RealEstate #HomeForSale`,
		CarouselText: "Photo 1: Stunning exterior view showcasing the property's curb appeal and attractive landscaping.\n" +
			"Photo 2: Spacious living area with an open floor plan and abundant natural light.\n" +
			"Photo 3: Modern kitchen featuring updated appliances and quality finishes.\n" +
			"Photo 4: Comfortable bedroom with ample space and natural lighting.\n" +
			"Photo 5: Well-maintained outdoor space perfect for relaxation and entertaining.",
	}
}
