package hospitality

// Demo data matching the registration registry snapshot used at the
// desk dry runs. Loaded only when config.SeedDemoData is set.

var SeedProfiles = []StudentProfile{
	{StudentID: "STU001", Name: "Rahul Sharma", Email: "rahul.sharma@gmail.com", Phone: "9876543210", College: "VIT Chennai", StudentType: StudentTypeExternal},
	{StudentID: "STU002", Name: "Priya Krishnan", Email: "priya.k@gmail.com", Phone: "9876543211", College: "Amrita Coimbatore", StudentType: StudentTypeAffiliated},
	{StudentID: "STU003", Name: "Arun Kumar", Email: "arun.kumar@gmail.com", Phone: "9876543212", College: "SRM Chennai", StudentType: StudentTypeExternal},
	{StudentID: "STU004", Name: "Deepa Menon", Email: "deepa.m@gmail.com", Phone: "9876543213", College: "Amrita Bangalore", StudentType: StudentTypeAffiliated},
	{StudentID: "STU005", Name: "Vikram Reddy", Email: "vikram.r@gmail.com", Phone: "9876543214", College: "BITS Pilani", StudentType: StudentTypeExternal},
	{StudentID: "STU006", Name: "Ananya Nair", Email: "ananya.n@gmail.com", Phone: "9876543215", College: "NIT Trichy", StudentType: StudentTypeExternal},
	{StudentID: "STU007", Name: "Karthik Iyer", Email: "karthik.i@gmail.com", Phone: "9876543216", College: "Amrita Amritapuri", StudentType: StudentTypeAffiliated},
	{StudentID: "STU008", Name: "Sneha Pillai", Email: "sneha.p@gmail.com", Phone: "9876543217", College: "PSG Tech", StudentType: StudentTypeExternal},
	{StudentID: "STU009", Name: "Arjun Das", Email: "arjun.d@gmail.com", Phone: "9876543218", College: "CEG Anna University", StudentType: StudentTypeExternal},
	{StudentID: "STU010", Name: "Meera Suresh", Email: "meera.s@gmail.com", Phone: "9876543219", College: "Amrita Kochi", StudentType: StudentTypeAffiliated},
}

var SeedHostels = []Hostel{
	{ID: "H001", Name: "Vashista Single", Sharing: "Single Share", Price: 2000, TotalBeds: 100, OccupiedBeds: 45},
	{ID: "H002", Name: "Vashista Dorm", Sharing: "Dormitory", Price: 1000, TotalBeds: 80, OccupiedBeds: 42},
	{ID: "H003", Name: "Ganga", Sharing: "Double Share", Price: 1500, TotalBeds: 50, OccupiedBeds: 35},
	{ID: "H004", Name: "Yamuna", Sharing: "Triple Share", Price: 1200, TotalBeds: 120, OccupiedBeds: 90},
}
