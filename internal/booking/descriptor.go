package booking

// Descriptor is the presentation of a display status.
type Descriptor struct {
	Label     string `json:"label"`
	ClassName string `json:"class_name"`
}

var descriptors = map[DisplayStatus]Descriptor{
	DisplayCompleted:  {Label: "Completato", ClassName: "bg-blue-100 text-blue-700"},
	DisplayCancelled:  {Label: "Cancellato", ClassName: "bg-red-100 text-red-700"},
	DisplayPending:    {Label: "In attesa", ClassName: "bg-yellow-100 text-yellow-700"},
	DisplayIncomplete: {Label: "Non completato", ClassName: "bg-orange-100 text-orange-700"},
	DisplayNoShow:     {Label: "Non presentato", ClassName: "bg-gray-100 text-gray-700"},
}

// Describe returns the descriptor for a display status.
// Unknown values get the pending descriptor.
func Describe(s DisplayStatus) Descriptor {
	if d, ok := descriptors[s]; ok {
		return d
	}
	return descriptors[DisplayPending]
}
